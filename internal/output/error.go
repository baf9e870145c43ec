package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	bpayerr "github.com/borderlesspay/bpay/pkg/errors"
)

// ErrorOutput represents a structured error for JSON output.
type ErrorOutput struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	ExitCode   int               `json:"exit_code"`
}

// ErrorDetailOf converts err into its JSON shape.
func ErrorDetailOf(err error) ErrorDetail {
	var be *bpayerr.BpayError
	if bpayerr.As(err, &be) {
		msg := be.Message
		if be.Cause != nil {
			msg = fmt.Sprintf("%s: %v", msg, be.Cause)
		}
		return ErrorDetail{
			Code:       be.Code,
			Message:    msg,
			Details:    be.Details,
			Suggestion: be.Suggestion,
			ExitCode:   be.ExitCode,
		}
	}
	return ErrorDetail{
		Code:     bpayerr.Code(err),
		Message:  err.Error(),
		ExitCode: bpayerr.ExitCode(err),
	}
}

// FormatError formats an error for display.
func FormatError(w io.Writer, err error, format Format) error {
	if err == nil {
		return nil
	}

	if format == FormatJSON {
		return WriteJSON(w, ErrorOutput{Error: ErrorDetailOf(err)})
	}
	return formatErrorText(w, err)
}

func formatErrorText(w io.Writer, err error) error {
	var sb strings.Builder
	detail := ErrorDetailOf(err)

	fmt.Fprintf(&sb, "Error: %s\n", detail.Message)

	if len(detail.Details) > 0 {
		keys := make([]string, 0, len(detail.Details))
		for k := range detail.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString("\nDetails:\n")
		for _, k := range keys {
			fmt.Fprintf(&sb, "  %s: %s\n", k, detail.Details[k])
		}
	}

	if detail.Suggestion != "" {
		fmt.Fprintf(&sb, "\nSuggestion: %s\n", detail.Suggestion)
	}

	_, writeErr := io.WriteString(w, sb.String())
	return writeErr
}

// FormatSuccess writes a one-line confirmation.
func FormatSuccess(w io.Writer, message string, format Format) error {
	if format == FormatJSON {
		return WriteJSON(w, map[string]string{"status": "success", "message": message})
	}
	_, err := fmt.Fprintln(w, message)
	return err
}
