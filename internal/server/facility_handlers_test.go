package server

import (
	"net/http"
	"testing"

	"jeevandhara/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerHospital(t *testing.T, env *testEnv, name, email, reg string) uint {
	t.Helper()
	status, out := env.do(t, http.MethodPost, "/api/v1/hospitals/register", "", hospitalPayload(name, email, reg))
	require.Equal(t, http.StatusCreated, status, out)
	return uint(out["hospital"].(map[string]any)["id"].(float64))
}

func registerBank(t *testing.T, env *testEnv, name, email, reg string) uint {
	t.Helper()
	status, out := env.do(t, http.MethodPost, "/api/v1/blood-banks/register", "", bankPayload(name, email, reg))
	require.Equal(t, http.StatusCreated, status, out)
	return uint(out["bloodBank"].(map[string]any)["id"].(float64))
}

func TestRegisterHospital(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	status, out := env.do(t, http.MethodPost, "/api/v1/hospitals/register", "",
		hospitalPayload("City Care", "City@Care.test", "REG-1"))
	require.Equal(t, http.StatusCreated, status, out)
	assert.Equal(t, service.MsgHospitalRegistered, out["message"])
	h := out["hospital"].(map[string]any)
	assert.Equal(t, "city@care.test", h["email"])
	assert.Equal(t, "pending", h["verificationStatus"])
	assert.NotContains(t, h, "password")

	status, out = env.do(t, http.MethodPost, "/api/v1/hospitals/register", "",
		hospitalPayload("Other", "other@care.test", "REG-1"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, service.MsgHospitalExists, out["message"])

	payload := hospitalPayload("Short", "short@care.test", "REG-2")
	payload["password"] = "short"
	status, _ = env.do(t, http.MethodPost, "/api/v1/hospitals/register", "", payload)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestListHospitals_Pagination(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	registerHospital(t, env, "Alpha", "alpha@h.test", "A-1")
	registerHospital(t, env, "Beta", "beta@h.test", "B-1")
	registerHospital(t, env, "Gamma", "gamma@h.test", "G-1")

	status, out := env.do(t, http.MethodGet, "/api/v1/hospitals?page=2&limit=2", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, out["hospitals"], 1)
	p := out["pagination"].(map[string]any)
	assert.EqualValues(t, 2, p["page"])
	assert.EqualValues(t, 3, p["total"])
	assert.EqualValues(t, 2, p["pages"])
	assert.Equal(t, false, p["hasNext"])
	assert.Equal(t, true, p["hasPrev"])

	status, out = env.do(t, http.MethodGet, "/api/v1/hospitals?search=BETA", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, out["hospitals"], 1)

	status, _ = env.do(t, http.MethodGet, "/api/v1/hospitals/999", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestBloodBankDonationAndDistribution(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	bankID := registerBank(t, env, "Red Cross", "rc@bank.test", "BB-1")
	hospitalID := registerHospital(t, env, "City Care", "city@care.test", "REG-1")
	base := "/api/v1/blood-banks/" + itoa(bankID)

	status, out := env.do(t, http.MethodPost, base+"/donations", "", map[string]any{
		"donorName": "Walk-in", "bloodGroup": "B+", "units": 5,
	})
	require.Equal(t, http.StatusCreated, status, out)
	assert.EqualValues(t, 5, out["stock"].(map[string]any)["units"])

	status, out = env.do(t, http.MethodPost, base+"/distributions", "", map[string]any{
		"hospitalId": hospitalID, "bloodGroup": "B+", "units": 3,
	})
	require.Equal(t, http.StatusCreated, status, out)
	assert.EqualValues(t, 2, out["remainingStock"])
	assert.Equal(t, "City Care", out["distribution"].(map[string]any)["hospitalName"])

	status, out = env.do(t, http.MethodPost, base+"/distributions", "", map[string]any{
		"hospitalId": hospitalID, "bloodGroup": "B+", "units": 3,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Insufficient stock for B+", out["message"])

	status, out = env.do(t, http.MethodGet, base+"/donations", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, out["count"])

	status, out = env.do(t, http.MethodGet, base+"/distributions", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, out["count"])

	status, out = env.do(t, http.MethodPost, base+"/donations", "", map[string]any{
		"bloodGroup": "B+", "units": 0,
	})
	assert.Equal(t, http.StatusBadRequest, status, out)
}

func TestHospitalStockAndRequests(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	hospitalID := registerHospital(t, env, "City Care", "city@care.test", "REG-1")
	base := "/api/v1/hospitals/" + itoa(hospitalID)

	status, out := env.do(t, http.MethodPost, base+"/blood-stock", "", map[string]any{
		"bloodGroup": "A-", "units": 4,
	})
	require.Equal(t, http.StatusCreated, status, out)
	stockID := uint(out["stock"].(map[string]any)["id"].(float64))

	status, out = env.do(t, http.MethodGet, base+"/blood-stock", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, out["count"])

	status, out = env.do(t, http.MethodPut, "/api/v1/hospitals/blood-stock/"+itoa(stockID), "", map[string]any{"units": 7})
	require.Equal(t, http.StatusOK, status, out)
	assert.EqualValues(t, 7, out["stock"].(map[string]any)["units"])

	status, _ = env.do(t, http.MethodDelete, "/api/v1/hospitals/blood-stock/"+itoa(stockID), "", nil)
	require.Equal(t, http.StatusOK, status)

	status, out = env.do(t, http.MethodPost, base+"/blood-requests", "", map[string]any{
		"patientName": "Mohan", "bloodGroup": "A-", "unitsRequired": 2,
		"urgency": "high", "requestedFrom": "blood_bank",
	})
	require.Equal(t, http.StatusCreated, status, out)
	requestID := uint(out["request"].(map[string]any)["id"].(float64))

	status, out = env.do(t, http.MethodPut, "/api/v1/hospitals/blood-requests/"+itoa(requestID)+"/delivery-status", "",
		map[string]any{"deliveryStatus": "in_transit"})
	require.Equal(t, http.StatusOK, status, out)
	assert.Equal(t, "in_transit", out["request"].(map[string]any)["deliveryStatus"])

	status, _ = env.do(t, http.MethodPut, "/api/v1/hospitals/blood-requests/"+itoa(requestID)+"/delivery-status", "",
		map[string]any{"deliveryStatus": "teleported"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, out = env.do(t, http.MethodGet, base+"/blood-requests", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, out["count"])
}
