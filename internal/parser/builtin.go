package parser

import (
	"docextract/internal/parser/docx"
	"docextract/internal/parser/pdf"
	"docextract/internal/parser/text"
	"docextract/internal/parser/xlsx"
	"docextract/internal/port"
)

func init() {
	RegisterTokenizer(TokenizerPDFPositioned, func(opts TokenizerOptions) port.Tokenizer { return pdf.NewPositionedTokenizer(opts.LineTolerance) })
	RegisterTokenizer(TokenizerPDFPlain, func(TokenizerOptions) port.Tokenizer { return pdf.NewPlainTokenizer() })
	RegisterTokenizer(TokenizerDocxDocconv, func(TokenizerOptions) port.Tokenizer { return docx.NewDocconvTokenizer() })
	RegisterTokenizer(TokenizerDocxXML, func(TokenizerOptions) port.Tokenizer { return docx.NewXMLTokenizer() })
	RegisterTokenizer(TokenizerTextUTF8, func(TokenizerOptions) port.Tokenizer { return text.NewUTF8Tokenizer() })
	RegisterTokenizer(TokenizerTextGB18030, func(TokenizerOptions) port.Tokenizer { return text.NewGB18030Tokenizer() })
	RegisterTokenizer(TokenizerSpreadsheet, func(TokenizerOptions) port.Tokenizer { return xlsx.NewTokenizer() })
}
