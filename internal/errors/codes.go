// Package errors provides structured error handling for DocSearch.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (file, disk, index)
//   - 3XX: Collaborator errors (conversion service, OCR binaries)
//   - 5XX: Internal errors
package errors

// Category classifies errors by the subsystem that produced them.
type Category string

const (
	CategoryConfig       Category = "CONFIG"
	CategoryIO           Category = "IO"
	CategoryCollaborator Category = "COLLABORATOR"
	CategoryInternal     Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal aborts the current run.
	SeverityFatal Severity = "FATAL"
	// SeverityError fails the operation; the run continues.
	SeverityError Severity = "ERROR"
	// SeverityWarning marks degraded but continuing operation.
	SeverityWarning Severity = "WARNING"
)

const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// IO errors (200-299)
	ErrCodeFileNotFound   = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFolderNotFound = "ERR_202_FOLDER_NOT_FOUND"
	ErrCodeCorruptIndex   = "ERR_203_CORRUPT_INDEX"
	ErrCodeFileCorrupt    = "ERR_204_FILE_CORRUPT"

	// Collaborator errors (300-399)
	ErrCodeConversionService = "ERR_301_CONVERSION_SERVICE"
	ErrCodeOCRFailed         = "ERR_302_OCR_FAILED"
	ErrCodeStoreUnavailable  = "ERR_303_STORE_UNAVAILABLE"

	// Internal errors (500-599)
	ErrCodeInternal      = "ERR_501_INTERNAL"
	ErrCodeSearchFailed  = "ERR_502_SEARCH_FAILED"
	ErrCodeIndexFailed   = "ERR_503_INDEX_FAILED"
	ErrCodeExtractFailed = "ERR_504_EXTRACT_FAILED"
)

// categoryFromCode maps the leading code digit to a category.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryCollaborator
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on the error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeFolderNotFound, ErrCodeCorruptIndex:
		return SeverityFatal
	}
	if isRetryableCode(code) {
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode reports whether an error code represents a retryable
// error. Collaborator failures are transient by nature; OCR failures
// are not, a page that tesseract cannot read will not improve.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeConversionService, ErrCodeStoreUnavailable:
		return true
	}
	return false
}
