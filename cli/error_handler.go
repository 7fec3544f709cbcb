package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/grovetools/repoview/errors"
)

// ErrorHandler prints user-facing explanations for failed commands.
type ErrorHandler struct {
	Verbose bool
	Out     io.Writer
}

// NewErrorHandler creates an error handler writing to stderr.
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
		Out:     os.Stderr,
	}
}

// Handle prints a hint for err based on its code and returns err unchanged.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}
	e, _ := errors.As(err)

	switch errors.GetCode(err) {
	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(h.Out, "❌ Configuration not found: %v\n", e.Details["path"])
		fmt.Fprintf(h.Out, "Drop --config to use the defaults, or run 'repoview config schema' for the format.\n")

	case errors.ErrCodeConfigInvalid, errors.ErrCodeConfigValidation:
		fmt.Fprintf(h.Out, "❌ Invalid configuration: %s\n", e.Message)
		if v, ok := e.Details["value"]; ok {
			fmt.Fprintf(h.Out, "Offending value: %v\n", v)
		}

	case errors.ErrCodeConnectFailed:
		fmt.Fprintf(h.Out, "❌ Could not reach the backend at %v\n", e.Details["url"])
		fmt.Fprintf(h.Out, "Check that it is running, or point --host and --rpc-port at it.\n")

	case errors.ErrCodeTransportClosed:
		code, reason, _ := errors.CloseInfo(err)
		fmt.Fprintf(h.Out, "❌ The backend closed the connection (code %d", code)
		if reason != "" {
			fmt.Fprintf(h.Out, ", %s", reason)
		}
		fmt.Fprintf(h.Out, ")\n")

	case errors.ErrCodeSubscriptionFailed:
		fmt.Fprintf(h.Out, "❌ Lost the change stream at %v\n", e.Details["url"])
		fmt.Fprintf(h.Out, "Try --changes poll if the backend does not serve events.\n")

	case errors.ErrCodeCallFailed:
		fmt.Fprintf(h.Out, "❌ The backend rejected the request: %s\n", e.Message)

	default:
		fmt.Fprintf(h.Out, "❌ Error: %v\n", err)
	}

	if h.Verbose && e != nil {
		fmt.Fprintf(h.Out, "\nError details:\n%s\n", e.ToJSON())
	}
	return err
}
