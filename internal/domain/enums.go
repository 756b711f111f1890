package domain

import (
	"path/filepath"
	"strings"
)

// FileType represents a document format the engine knows about.
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeDOCX FileType = "docx"
	FileTypeDOC  FileType = "doc"
	FileTypeXLSX FileType = "xlsx"
	FileTypeXLS  FileType = "xls"
	FileTypeTXT  FileType = "txt"
)

// AllowedFileTypes maps FileType to its MIME content type.
var AllowedFileTypes = map[FileType]string{
	FileTypePDF:  "application/pdf",
	FileTypeDOCX: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	FileTypeDOC:  "application/msword",
	FileTypeXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	FileTypeXLS:  "application/vnd.ms-excel",
	FileTypeTXT:  "text/plain",
}

// AllowedContentTypes maps MIME content types back to FileType.
var AllowedContentTypes = map[string]FileType{
	"application/pdf":    FileTypePDF,
	"application/msword": FileTypeDOC,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": FileTypeDOCX,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       FileTypeXLSX,
	"application/vnd.ms-excel": FileTypeXLS,
	"text/plain":               FileTypeTXT,
}

// AllowedExtensions maps file extensions (without dot) to FileType.
var AllowedExtensions = map[string]FileType{
	"pdf":  FileTypePDF,
	"docx": FileTypeDOCX,
	"doc":  FileTypeDOC,
	"xlsx": FileTypeXLSX,
	"xls":  FileTypeXLS,
	"txt":  FileTypeTXT,
}

// DetectFileType resolves the format from the filename extension, falling back
// to the declared content type. The second return is false when neither is known.
func DetectFileType(filename, contentType string) (FileType, bool) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ft, ok := AllowedExtensions[ext]; ok {
		return ft, true
	}
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ft, ok := AllowedContentTypes[ct]; ok {
		return ft, true
	}
	return "", false
}

// DocumentKind selects the family of fields to extract.
type DocumentKind string

const (
	DocumentKindInvoice  DocumentKind = "invoice"
	DocumentKindContract DocumentKind = "contract"
)

// Valid reports whether k is a known document kind.
func (k DocumentKind) Valid() bool {
	return k == DocumentKindInvoice || k == DocumentKindContract
}

// InvoiceSubtype distinguishes the two VAT invoice layouts. It is ignored for contracts.
type InvoiceSubtype string

const (
	InvoiceSubtypeSpecial  InvoiceSubtype = "special"
	InvoiceSubtypeOrdinary InvoiceSubtype = "ordinary"
)

// ExtractionQuality summarizes how much of a document was recovered.
type ExtractionQuality string

const (
	QualityFull         ExtractionQuality = "full"
	QualityPartial      ExtractionQuality = "partial"
	QualityFilenameOnly ExtractionQuality = "filename_only"
)
