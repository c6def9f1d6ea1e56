package sascar

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const positionsResponse = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <ns2:obterPacotePosicoesComPlacaResponse xmlns:ns2="http://webservice.web.integracao.sascar.com.br/">
      <return>
        <idVeiculo>4331</idVeiculo>
        <placa>ABC1D23</placa>
        <dataPacote>2025-03-10T12:00:00</dataPacote>
        <latitude>-23.5</latitude>
        <longitude>-51.0</longitude>
        <odometro>1520.5</odometro>
        <ignicao>1</ignicao>
        <velocidade>62</velocidade>
      </return>
      <return>
        <idVeiculo>not-a-number</idVeiculo>
        <dataPacote>2025-03-10T12:01:00</dataPacote>
        <latitude>-23.5</latitude>
        <longitude>-51.0</longitude>
        <odometro>10</odometro>
      </return>
      <return>
        <idVeiculo>4332</idVeiculo>
        <dataPosicao>2025-03-10 12:05:00</dataPosicao>
        <latitude>-23.6</latitude>
        <longitude>-51.1</longitude>
        <odometro>881</odometro>
        <ignicao>0</ignicao>
      </return>
    </ns2:obterPacotePosicoesComPlacaResponse>
  </soap:Body>
</soap:Envelope>`

const authFaultResponse = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <soap:Fault>
      <faultcode>soap:Server</faultcode>
      <faultstring>Usuario ou senha invalidos</faultstring>
    </soap:Fault>
  </soap:Body>
</soap:Envelope>`

const vehiclesResponse = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <ns2:obterVeiculosResponse xmlns:ns2="http://webservice.web.integracao.sascar.com.br/">
      <return><idVeiculo>4331</idVeiculo><placa>ABC1D23</placa></return>
      <return><idVeiculo>4332</idVeiculo><placa>DEF4G56</placa></return>
    </ns2:obterVeiculosResponse>
  </soap:Body>
</soap:Envelope>`

func TestFetchPendingBatchParsesPositions(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.Write([]byte(positionsResponse))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "user", "pass")
	positions, err := c.FetchPendingBatch(context.Background(), 100)
	require.NoError(t, err)

	// Malformed middle record is skipped, not fatal.
	require.Len(t, positions, 2)

	first := positions[0]
	assert.EqualValues(t, 4331, first.VehicleID)
	assert.Equal(t, "ABC1D23", first.Plate)
	assert.True(t, first.Timestamp.Equal(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, -23.5, first.Latitude)
	assert.Equal(t, 1520.5, first.Odometer)
	assert.True(t, first.IgnitionOn)
	assert.Equal(t, 62.0, first.SpeedKmh)

	second := positions[1]
	assert.EqualValues(t, 4332, second.VehicleID)
	assert.False(t, second.IgnitionOn)
	assert.Equal(t, 0.0, second.SpeedKmh)

	assert.Contains(t, gotBody, "<quantidade>100</quantidade>")
	assert.Contains(t, gotBody, "obterPacotePosicoesComPlaca")
}

func TestFetchHistorySendsWindow(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.Write([]byte(positionsResponse))
	}))
	defer srv.Close()

	from := time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 10, 11, 45, 0, 0, time.UTC)

	c := NewClient(srv.URL, "user", "pass")
	_, err := c.FetchHistory(context.Background(), 4331, from, to)
	require.NoError(t, err)

	assert.Contains(t, gotBody, "obterPacotePosicaoHistorico")
	assert.Contains(t, gotBody, "<dataInicio>2025-03-10 11:00:00</dataInicio>")
	assert.Contains(t, gotBody, "<dataFinal>2025-03-10 11:45:00</dataFinal>")
	assert.Contains(t, gotBody, "<idVeiculo>4331</idVeiculo>")
}

func TestFetchVehicles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(vehiclesResponse))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "user", "pass")
	vehicles, err := c.FetchVehicles(context.Background())
	require.NoError(t, err)
	require.Len(t, vehicles, 2)
	assert.EqualValues(t, 4331, vehicles[0].ID)
	assert.Equal(t, "DEF4G56", vehicles[1].Plate)
}

func TestAuthFaultIsErrAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(authFaultResponse))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "user", "wrong")
	_, err := c.FetchPendingBatch(context.Background(), 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuth)
	assert.False(t, IsTransient(err))
}

func TestHTTPUnauthorizedIsErrAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "user", "pass")
	_, err := c.FetchPendingBatch(context.Background(), 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuth)
}

func TestServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "user", "pass")
	_, err := c.FetchPendingBatch(context.Background(), 100)
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestNetworkErrorIsTransient(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "user", "pass")
	_, err := c.FetchPendingBatch(context.Background(), 100)
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestMissingCredentialsIsErrAuth(t *testing.T) {
	c := NewClient("http://example.invalid", "", "")
	_, err := c.FetchPendingBatch(context.Background(), 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuth)
}

func TestParseSascarTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-03-10T12:00:00Z", time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)},
		{"2025-03-10T12:00:00", time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)},
		{"2025-03-10 12:00:00", time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := parseSascarTime(tt.in)
		require.NoError(t, err, tt.in)
		assert.True(t, got.Equal(tt.want), tt.in)
	}

	_, err := parseSascarTime("10/03/2025")
	assert.Error(t, err)
}
