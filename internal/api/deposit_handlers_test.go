package api_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chequepro/depositslip/internal/domain"
	"github.com/chequepro/depositslip/internal/repository"
)

type slipResponse struct {
	Revision int                `json:"revision"`
	Lines    []domain.LineItem  `json:"lines"`
	Slip     domain.DepositSlip `json:"slip"`
}

func Test_DepositSlip_Flow(t *testing.T) {
	// arrange
	srv := newTestServer(t, 0)
	a := decode[domain.Cheque](t, srv.do(t, http.MethodPost, "/api/v1/cheques", validCheque("111")))
	second := validCheque("222")
	second["amount"] = "10.005"
	b := decode[domain.Cheque](t, srv.do(t, http.MethodPost, "/api/v1/cheques", second))

	rec := srv.do(t, http.MethodPut, "/api/v1/deposit-slip/header", map[string]string{
		"bank_name":      "Sampath Bank",
		"account_holder": "ABC Traders",
		"account_number": "1234-5678-9012",
		"deposit_date":   "2024-03-20",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// act
	rec = srv.do(t, http.MethodPost, "/api/v1/deposit-slip/select/"+a.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = srv.do(t, http.MethodPost, "/api/v1/deposit-slip/select/"+b.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// assert
	state := decode[slipResponse](t, rec)
	require.Len(t, state.Slip.Lines, 2)
	assert.Equal(t, "1234567890", state.Slip.AccountNumberDigits)
	assert.Equal(t, "20032024", state.Slip.DepositDateDigits)
	assert.Equal(t, int64(1510), state.Slip.TotalRupees)
	assert.Equal(t, int64(51), state.Slip.TotalCents)
	assert.Greater(t, state.Revision, 0)

	// finalize
	rec = srv.do(t, http.MethodPost, "/api/v1/deposit-slip/finalize", map[string]bool{"mark_deposited": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	state = decode[slipResponse](t, rec)
	assert.Empty(t, state.Lines)
	assert.Empty(t, state.Slip.Lines)
	assert.Equal(t, "ABC Traders", state.Slip.AccountHolder)

	stored, err := srv.cheques.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDeposited, stored.Status)

	// a deposited cheque cannot be selected again
	rec = srv.do(t, http.MethodPost, "/api/v1/deposit-slip/select/"+a.ID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func Test_DepositSlip_HeaderRemembered(t *testing.T) {
	srv := newTestServer(t, 0)

	rec := srv.do(t, http.MethodPut, "/api/v1/deposit-slip/header", map[string]string{
		"bank_name":      " Sampath Bank ",
		"account_holder": "ABC Traders",
		"account_number": "1234-5678-9012",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	all, err := srv.settings.All()
	require.NoError(t, err)
	assert.Equal(t, "Sampath Bank", all[repository.SettingDepositBankName])
	assert.Equal(t, "ABC Traders", all[repository.SettingDepositAccountHolder])
	assert.Equal(t, "1234-5678-9012", all[repository.SettingDepositAccountNumber])

	rec = srv.do(t, http.MethodPut, "/api/v1/deposit-slip/header", map[string]string{"deposit_date": "20/03/2024"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func Test_DepositSlip_AmountAboveMaximum(t *testing.T) {
	srv := newTestServer(t, 0)
	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/api/v1/deposit-slip/lines", nil).Code)
	rec := srv.do(t, http.MethodPatch, "/api/v1/deposit-slip/lines/0", map[string]string{"field": "amount", "value": "250"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodPatch, "/api/v1/deposit-slip/lines/0", map[string]string{"field": "amount", "value": "20000000000000000000.50"})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	state := decode[slipResponse](t, srv.do(t, http.MethodGet, "/api/v1/deposit-slip", nil))
	assert.Equal(t, "250.00", state.Lines[0].Amount.StringFixed(2))
}

func Test_DepositSlip_ManualLines(t *testing.T) {
	srv := newTestServer(t, 0)
	srv.do(t, http.MethodPost, "/api/v1/cheques", validCheque("445566"))

	rec := srv.do(t, http.MethodPost, "/api/v1/deposit-slip/lines", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = srv.do(t, http.MethodPatch, "/api/v1/deposit-slip/lines/0", map[string]string{"field": "amount", "value": "abc"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[slipResponse](t, rec).Lines[0].Amount.IsZero())

	rec = srv.do(t, http.MethodPost, "/api/v1/deposit-slip/lines/0/lookup", map[string]string{"cheque_number": "445566"})
	require.Equal(t, http.StatusOK, rec.Code)
	line := decode[slipResponse](t, rec).Lines[0]
	assert.Equal(t, "Kandy", line.BranchName)
	assert.Equal(t, "1500.50", line.Amount.StringFixed(2))

	rec = srv.do(t, http.MethodPatch, "/api/v1/deposit-slip/lines/0", map[string]string{"field": "payee", "value": "x"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = srv.do(t, http.MethodPatch, "/api/v1/deposit-slip/lines/7", map[string]string{"field": "amount", "value": "1"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = srv.do(t, http.MethodDelete, "/api/v1/deposit-slip/lines/0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[slipResponse](t, rec).Lines)
}

func Test_DepositSlip_Errors(t *testing.T) {
	srv := newTestServer(t, 0)

	rec := srv.do(t, http.MethodPost, "/api/v1/deposit-slip/select/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/v1/deposit-slip/finalize", map[string]bool{"mark_deposited": true})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	for i := 0; i < domain.MaxSlipLines; i++ {
		require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/api/v1/deposit-slip/lines", nil).Code)
	}
	rec = srv.do(t, http.MethodPost, "/api/v1/deposit-slip/lines", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "maximum 6 cheques")

	rec = srv.do(t, http.MethodPost, "/api/v1/deposit-slip/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[slipResponse](t, rec).Lines)
}
