// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/rvguard/internal/middleware"
	"github.com/tomtom215/rvguard/internal/security"
	"github.com/tomtom215/rvguard/internal/validation"
)

// ACLList returns every ACL entry sorted by address plus the default policy.
func (h *Handler) ACLList(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, h.detector.ACL())
}

// ACLPut installs or replaces the entry for {address}.
func (h *Handler) ACLPut(w http.ResponseWriter, r *http.Request) {
	addr, err := parseSourceAddress(chi.URLParam(r, "address"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ADDRESS", err.Error(), nil)
		return
	}

	var req ACLEntryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		respondErrorWithDetails(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details, nil)
		return
	}

	_, existed := h.detector.ACLEntry(addr)

	entry := security.NewSourceACLEntry(addr, req.AllowedPGNs, req.DeniedPGNs)
	entry.IsWhitelisted = req.Whitelisted
	entry.Description = req.Description
	h.detector.AddSourceToACL(entry)

	h.audit.LogACLUpdated(middleware.GetRequestID(r.Context()), remoteAddr(r),
		fmt.Sprintf("0x%02X", addr), len(req.AllowedPGNs), len(req.DeniedPGNs))

	view, _ := h.detector.ACLEntry(addr)
	status := http.StatusCreated
	if existed {
		status = http.StatusOK
	}
	respondSuccess(w, status, view)
}

// ACLDelete removes the entry for {address}; 404 when there is none.
func (h *Handler) ACLDelete(w http.ResponseWriter, r *http.Request) {
	addr, err := parseSourceAddress(chi.URLParam(r, "address"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ADDRESS", err.Error(), nil)
		return
	}

	removed := h.detector.RemoveSourceFromACL(addr)
	h.audit.LogACLRemoved(middleware.GetRequestID(r.Context()), remoteAddr(r), fmt.Sprintf("0x%02X", addr), removed)

	if !removed {
		respondError(w, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("no ACL entry for source 0x%02X", addr), nil)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"address": addr,
		"removed": true,
	})
}

// ACLPolicy sets the default policy applied to sources without an entry.
func (h *Handler) ACLPolicy(w http.ResponseWriter, r *http.Request) {
	var req PolicyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		respondErrorWithDetails(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details, nil)
		return
	}

	err := h.detector.SetDefaultACLPolicy(req.Policy)
	h.audit.LogPolicyChanged(middleware.GetRequestID(r.Context()), remoteAddr(r), sanitizeLogValue(req.Policy), err)
	if err != nil {
		if errors.Is(err, security.ErrInvalidPolicy) {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "policy must be one of: allow, deny", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to set policy", err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]string{
		"default_policy": string(h.detector.ACL().DefaultPolicy),
	})
}

// decodeBody decodes a bounded JSON body, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", nil)
		return false
	}
	return true
}
