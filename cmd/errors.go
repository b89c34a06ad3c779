package cmd

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/cirrusidentity/siem-client/internal/config"
	"github.com/cirrusidentity/siem-client/internal/output"
	"github.com/cirrusidentity/siem-client/internal/query"
	"github.com/cirrusidentity/siem-client/internal/transport"
)

// toCLIError maps err onto a user-facing error with an exit code
func toCLIError(err error) *output.CLIError {
	var cliErr *output.CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}

	var apiErr *transport.APIError
	var transportErr *transport.TransportError
	var decodeErr *transport.DecodeError

	switch {
	case errors.Is(err, config.ErrMissingCredentials):
		return &output.CLIError{
			Summary:    "missing API key or secret",
			Detail:     err.Error(),
			Suggestion: "Pass --apikey and --apisecret, or export API_KEY and API_SECRET",
			ExitCode:   output.ExitConfigError,
			Err:        err,
		}
	case errors.Is(err, query.ErrMalformedQuery), errors.Is(err, query.ErrUnknownFilter):
		return &output.CLIError{
			Summary:    "invalid --query",
			Detail:     err.Error(),
			Suggestion: "Use comma-separated key=value pairs, e.g. --query service=idp,user=jdoe",
			ExitCode:   output.ExitUsageError,
			Err:        err,
		}
	case errors.As(err, &apiErr):
		return &output.CLIError{
			Summary:    fmt.Sprintf("API returned %s", apiErr.Status),
			Detail:     err.Error(),
			Suggestion: apiSuggestion(apiErr.StatusCode),
			ExitCode:   output.ExitAPIError,
			Err:        err,
		}
	case errors.As(err, &transportErr):
		return &output.CLIError{
			Summary:    "could not reach the log search API",
			Detail:     err.Error(),
			Suggestion: "Check network access and --apiurl",
			ExitCode:   output.ExitGeneral,
			Err:        err,
		}
	case errors.As(err, &decodeErr):
		return &output.CLIError{
			Summary:  "unexpected response from the log search API",
			Detail:   err.Error(),
			ExitCode: output.ExitGeneral,
			Err:      err,
		}
	default:
		return &output.CLIError{
			Summary:  err.Error(),
			ExitCode: output.ExitGeneral,
			Err:      err,
		}
	}
}

func apiSuggestion(status int) string {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return "Check the API key and secret; use --orgurl if the key covers several orgs"
	case http.StatusNotFound:
		return "Check --apiurl"
	default:
		return ""
	}
}

// ReportError prints err to w and returns the process exit code
func ReportError(w io.Writer, err error) int {
	if err == nil {
		return output.ExitSuccess
	}
	cliErr := toCLIError(err)
	mode, _ := output.ParseColorMode(colorFlag)
	colors := true
	if cfg != nil {
		colors = cfg.Output.Colors
	}
	printer := output.NewPrinter(output.PrinterOptions{ColorMode: mode, ConfigColors: colors, Err: w})
	printer.FormatError(cliErr)
	return cliErr.ExitCode
}
