package dto

import "github.com/spec-kit/support-portal/internal/upload"

// NewUploadReport converts a handoff report. notice is the localized summary.
func NewUploadReport(r upload.Report, notice string) UploadReportResponse {
	files := r.Files
	if files == nil {
		files = []upload.FileResult{}
	}
	succeeded := r.Succeeded()
	if succeeded == nil {
		succeeded = []string{}
	}
	return UploadReportResponse{
		Succeeded: succeeded,
		Failed:    r.Failed(),
		Skipped:   r.Skipped,
		Files:     files,
		Notice:    notice,
	}
}
