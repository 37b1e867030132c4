package services

import (
	"context"
	"fmt"

	"example.com/backstage/services/laundry/internal/repositories"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Orders"

var exportHeader = []interface{}{
	"Order number", "Received", "Customer", "Telephone", "Service", "Address",
	"Items", "Done", "Progress %", "Status", "Scheduling", "Total",
}

// ExportOrders renders the filtered order list as an XLSX workbook
func (s *OrderService) ExportOrders(ctx context.Context, filter repositories.OrderFilter) ([]byte, error) {
	summaries, err := s.ListOrders(ctx, filter)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return nil, errors.Wrap(err, "failed to name sheet")
	}

	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return nil, errors.Wrap(err, "failed to write header")
	}

	for i, o := range summaries {
		row := []interface{}{
			o.OrderNumber,
			o.ReceivedDate.Format("2006-01-02 15:04"),
			o.CustomerName,
			o.TelephoneNumber,
			string(o.ServiceType),
			o.DeliveryAddress,
			o.Progress.Total,
			o.Progress.Completed,
			o.Progress.Percentage,
			string(o.Status),
			string(o.SchedulingStatus),
			o.TotalPrice,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, errors.Wrapf(err, "failed to write row %d", i+2)
		}
	}

	if err := f.AutoFilter(exportSheet, fmt.Sprintf("A1:L%d", len(summaries)+1), nil); err != nil {
		return nil, errors.Wrap(err, "failed to set auto filter")
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "failed to render workbook")
	}
	return buf.Bytes(), nil
}
