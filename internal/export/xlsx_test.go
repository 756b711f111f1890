package export_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"docextract/internal/domain"
	"docextract/internal/export"
	"docextract/internal/parser"
	"docextract/internal/service"
)

func TestWriteXLSX_Contract(t *testing.T) {
	fields := domain.NewExtractedFields(domain.DocumentKindContract, "", "contract.docx")
	fields.Contract.ContractNumber = "HT-2024-001"
	fields.Contract.PartyA = "北京甲科技有限公司"
	fields.Contract.ContractAmount = "125000.00"
	items := []service.BatchItem{{
		Filename: "contract.docx",
		Fields:   fields,
		Quality:  domain.QualityPartial,
		State:    parser.StatePrimary,
	}}

	var buf bytes.Buffer
	require.NoError(t, export.WriteXLSX(&buf, domain.DocumentKindContract, items))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{export.ContractSheet}, f.GetSheetList())
	rows, err := f.GetRows(export.ContractSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "合同编号", rows[0][3])
	assert.Equal(t, "contract.docx", rows[1][0])
	assert.Equal(t, "primary", rows[1][1])
	assert.Equal(t, "HT-2024-001", rows[1][3])
	assert.Equal(t, "北京甲科技有限公司", rows[1][9])
	assert.Equal(t, "125000.00", rows[1][12])
}

func TestWriteXLSX_InvalidKind(t *testing.T) {
	err := export.WriteXLSX(&bytes.Buffer{}, "receipt", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidDocumentKind)
}
