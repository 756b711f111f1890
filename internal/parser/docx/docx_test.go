package docx_test

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docextract/internal/parser/docx"
)

const body = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>技术服务合同</w:t></w:r></w:p>
<w:p><w:r><w:t>合同编号：</w:t></w:r><w:r><w:t>HT-2024-001</w:t></w:r></w:p>
<w:tbl><w:tr>
<w:tc><w:p><w:r><w:t>甲方</w:t></w:r></w:p></w:tc>
<w:tc><w:p><w:r><w:t>北京甲科技有限公司</w:t></w:r></w:p></w:tc>
</w:tr></w:tbl>
<w:p></w:p>
</w:body>
</w:document>`

func buildDocx(t *testing.T, parts map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range parts {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestXMLTokenizer_Paragraphs(t *testing.T) {
	data := buildDocx(t, map[string]string{"word/document.xml": body})

	doc, err := docx.NewXMLTokenizer().Tokenize(data, "")
	require.NoError(t, err)

	assert.Equal(t, "技术服务合同\n合同编号：HT-2024-001\n甲方 北京甲科技有限公司\n", doc.RawText)
	assert.Equal(t, uint32(1), doc.PageCount)
	assert.False(t, doc.HasLayout())
}

func TestXMLTokenizer_MissingBody(t *testing.T) {
	data := buildDocx(t, map[string]string{"word/styles.xml": "<styles/>"})

	_, err := docx.NewXMLTokenizer().Tokenize(data, "")
	assert.ErrorIs(t, err, docx.ErrNoBody)
}

func TestTokenizers_RejectNonZip(t *testing.T) {
	data := []byte("plain text pretending to be a docx")

	_, err := docx.NewXMLTokenizer().Tokenize(data, "")
	assert.Error(t, err)

	_, err = docx.NewDocconvTokenizer().Tokenize(data, "")
	assert.Error(t, err)
}
