package httpinterface

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/agentcore/escrowd/internal/core/domain"
	"github.com/agentcore/escrowd/pkg/sigverify"
	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

const maxBodySize = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid json body: %s", errBadRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Debug("failed to write response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, code := statusForError(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).Warn("request failed")
	}
	writeJSON(w, status, ErrorResponse{ErrorInfo{code, err.Error()}})
}

func parseTradeIDParam(r *http.Request) (domain.TradeID, error) {
	return domain.ParseTradeID(chi.URLParam(r, "id"))
}

func parseAddress(name, s string) (domain.Address, error) {
	addr, err := sigverify.ParseAddress(s)
	if err != nil {
		return domain.Address{}, fmt.Errorf("%w: %s: %s", domain.ErrInvalidAddress, name, err)
	}
	return addr, nil
}

func parseHash(name, s string) (domain.Hash, error) {
	h, err := sigverify.ParseHash(s)
	if err != nil {
		return domain.Hash{}, fmt.Errorf("%w: %s: %s", errBadRequest, name, err)
	}
	return h, nil
}

func parseBytes(name, s string) ([]byte, error) {
	b, err := sigverify.DecodeHex(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", errBadRequest, name, err)
	}
	return b, nil
}

func parseSignatures(a, b string) ([]byte, []byte, error) {
	sigA, err := parseBytes("signature_a", a)
	if err != nil {
		return nil, nil, err
	}
	sigB, err := parseBytes("signature_b", b)
	if err != nil {
		return nil, nil, err
	}
	return sigA, sigB, nil
}

func parseTradeFilter(r *http.Request) (domain.TradeFilter, *domain.Page, error) {
	var (
		filter domain.TradeFilter
		page   *domain.Page
	)
	query := r.URL.Query()

	if v := query.Get("status"); v != "" {
		status, err := domain.ParseTradeStatus(v)
		if err != nil {
			return filter, nil, fmt.Errorf("%w: %s", errBadRequest, err)
		}
		filter.Status = &status
	}
	if v := query.Get("participant"); v != "" {
		addr, err := parseAddress("participant", v)
		if err != nil {
			return filter, nil, err
		}
		filter.Participant = &addr
	}

	pageNumber, pageSize := query.Get("page"), query.Get("size")
	if pageNumber != "" || pageSize != "" {
		number, err := parseOptionalInt(pageNumber)
		if err != nil {
			return filter, nil, fmt.Errorf("%w: invalid page: %s", errBadRequest, err)
		}
		size, err := parseOptionalInt(pageSize)
		if err != nil {
			return filter, nil, fmt.Errorf("%w: invalid size: %s", errBadRequest, err)
		}
		p := domain.NewPage(number, size)
		page = &p
	}
	return filter, page, nil
}

func parseOptionalInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
