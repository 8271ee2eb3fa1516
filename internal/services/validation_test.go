package services

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestValidationHelper_ValidateStruct(t *testing.T) {
	vh := NewValidationHelper()

	t.Run("valid payload", func(t *testing.T) {
		valid := withdrawalRequest{
			Amount:        500,
			Method:        "upi",
			UPIID:         "player@upi",
			AccountHolder: "Player One",
			MobileNumber:  "9876543210",
		}

		err := vh.ValidateStruct(&valid)
		assert.NoError(t, err)
	})

	t.Run("missing required fields", func(t *testing.T) {
		invalid := withdrawalRequest{Method: "upi"}

		err := vh.ValidateStruct(&invalid)
		assert.Error(t, err)

		validationErrors, ok := err.(validator.ValidationErrors)
		assert.True(t, ok)
		assert.Len(t, validationErrors, 1) // Amount
	})

	t.Run("unknown method rejected by oneof", func(t *testing.T) {
		invalid := withdrawalRequest{Amount: 500, Method: "crypto"}

		err := vh.ValidateStruct(&invalid)
		assert.Error(t, err)

		validationErrors, ok := err.(validator.ValidationErrors)
		assert.True(t, ok)
		assert.Equal(t, "Method", validationErrors[0].Field())
		assert.Equal(t, "oneof", validationErrors[0].Tag())
	})
}

func TestDecodeStrict(t *testing.T) {
	type payload struct {
		Amount float64 `json:"amount"`
	}

	t.Run("accepts a single object", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/", strings.NewReader(`{"amount": 100}`))
		w := httptest.NewRecorder()

		var p payload
		err := DecodeStrict(w, r, &p)
		assert.NoError(t, err)
		assert.Equal(t, 100.0, p.Amount)
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/", strings.NewReader(`{"amount": 100, "extra": true}`))
		w := httptest.NewRecorder()

		var p payload
		err := DecodeStrict(w, r, &p)
		assert.Error(t, err)
	})

	t.Run("rejects trailing data", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/", strings.NewReader(`{"amount": 100}{"amount": 200}`))
		w := httptest.NewRecorder()

		var p payload
		err := DecodeStrict(w, r, &p)
		assert.Error(t, err)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/", bytes.NewBufferString("not json"))
		w := httptest.NewRecorder()

		var p payload
		err := DecodeStrict(w, r, &p)
		assert.Error(t, err)
	})
}

func TestSendErrorResponse(t *testing.T) {
	t.Run("without validation errors", func(t *testing.T) {
		w := httptest.NewRecorder()

		SendErrorResponse(w, "Something went wrong", http.StatusInternalServerError, nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response ErrorResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, "Something went wrong", response.Error)
		assert.Nil(t, response.Details)
	})

	t.Run("with validation errors", func(t *testing.T) {
		vh := NewValidationHelper()
		invalid := withdrawalRequest{Method: "crypto"}

		validationErr := vh.ValidateStruct(&invalid)
		assert.Error(t, validationErr)

		w := httptest.NewRecorder()
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, validationErr)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response ErrorResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, "Validation failed", response.Error)
		assert.Contains(t, response.Details, "Amount")
		assert.Contains(t, response.Details, "Method")
	})
}

func TestSendDomainError(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{ErrAccountNotFound, http.StatusNotFound},
		{ErrRequestNotFound, http.StatusNotFound},
		{ErrAccountLocked, http.StatusLocked},
		{ErrAlreadyDecided, http.StatusConflict},
		{ErrBusy, http.StatusServiceUnavailable},
		{ErrInsufficientFunds, http.StatusBadRequest},
		{ErrInvalidMethodDetails, http.StatusBadRequest},
		{ErrAmountOutOfRange, http.StatusBadRequest},
		{ErrWagerRequirementNotMet, http.StatusBadRequest},
		{ErrMissingReason, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			SendDomainError(w, tc.err)

			assert.Equal(t, tc.code, w.Code)

			var response ErrorResponse
			err := json.Unmarshal(w.Body.Bytes(), &response)
			assert.NoError(t, err)
			assert.Equal(t, tc.err.Error(), response.Error)
		})
	}
}
