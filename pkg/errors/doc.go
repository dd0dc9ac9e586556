// Package errors provides structured errors shared by the loginapp packages.
//
// An Error carries a stable ErrorCode, a human readable message, optional
// details, and an optional wrapped cause. Codes map to HTTP statuses so
// handlers can answer without inspecting messages:
//
//	if err != nil {
//		http.Error(w, err.Error(), errors.MapErrorCodeToHTTPStatus(errors.GetCode(err)))
//		return
//	}
//
// Repositories return AccountNotFound for unknown identifiers; the account
// service relies on that code to tell a bad id from a bad password.
package errors
