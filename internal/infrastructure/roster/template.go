package roster

import (
	"bytes"

	"github.com/xuri/excelize/v2"

	"github.com/placement-cell/campus-placement-hub/internal/domain/shared"
)

// TemplateSheet is the sheet name of the downloadable roster template.
const TemplateSheet = "Shortlist"

// templateHeader is the single header cell coordinators fill below.
const templateHeader = "Student Email / Registration Number"

// BuildTemplate builds the blank roster workbook coordinators download,
// fill and upload back as a phase shortlist.
func BuildTemplate() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(TemplateSheet)
	if err != nil {
		return nil, shared.WrapError("roster", "BuildTemplate", shared.ErrInternal, "create sheet", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, shared.WrapError("roster", "BuildTemplate", shared.ErrInternal, "drop default sheet", err)
	}

	if err := f.SetCellValue(TemplateSheet, "A1", templateHeader); err != nil {
		return nil, shared.WrapError("roster", "BuildTemplate", shared.ErrInternal, "write header", err)
	}
	if err := f.SetColWidth(TemplateSheet, "A", "A", 40); err != nil {
		return nil, shared.WrapError("roster", "BuildTemplate", shared.ErrInternal, "set column width", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, shared.WrapError("roster", "BuildTemplate", shared.ErrInternal, "serialize workbook", err)
	}
	return buf.Bytes(), nil
}
