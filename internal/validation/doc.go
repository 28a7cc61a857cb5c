// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

/*
Package validation provides struct validation for management API requests
using go-playground/validator v10.

A single validator instance is shared process wide; it caches struct
metadata and is safe for concurrent use. Two RV-C specific tags are
registered on top of the built-in ones:

  - pgn: value fits in the 18-bit parameter group number space
  - severity: one of low, medium, high, critical

Example:

	type aclRequest struct {
	    AllowedPGNs []uint32 `json:"allowed_pgns" validate:"max=512,dive,pgn"`
	    Description string   `json:"description" validate:"max=256"`
	}

	if verr := validation.ValidateStruct(&req); verr != nil {
	    apiErr := verr.ToAPIError()
	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
	    return
	}
*/
package validation
