package sascar

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/loglive/telemetry-backend-go/internal/models"
)

// sascarDateFormat is the date layout the history operation expects.
const sascarDateFormat = "2006-01-02 15:04:05"

// Position is one telemetry record as delivered by the feed. The plate
// is only present on the "com placa" queue operation.
type Position struct {
	VehicleID  int64
	Plate      string
	Timestamp  time.Time
	Latitude   float64
	Longitude  float64
	Odometer   float64
	IgnitionOn bool
	SpeedKmh   float64
}

// Client talks to the SasIntegra SOAP web service. All operations carry
// the account credentials in the request body; there is no session state.
type Client struct {
	url        string
	user       string
	pass       string
	httpClient *http.Client
}

// NewClient creates a feed client for the given endpoint and credentials.
func NewClient(url, user, pass string) *Client {
	return &Client{
		url:  url,
		user: user,
		pass: pass,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// FetchPendingBatch requests the next batch of pending positions from the
// vendor queue, plate included. quantity limits the batch size; the
// vendor treats 0 as "vendor default".
func (c *Client) FetchPendingBatch(ctx context.Context, quantity int) ([]Position, error) {
	body, err := c.call(ctx, "obterPacotePosicoesComPlaca",
		fmt.Sprintf("<quantidade>%d</quantidade>", quantity))
	if err != nil {
		return nil, err
	}
	return parsePositions(body), nil
}

// FetchHistory requests positions for one vehicle within [from, to].
// The vendor caps history queries at 60 minutes; callers slice larger
// windows before calling.
func (c *Client) FetchHistory(ctx context.Context, vehicleID int64, from, to time.Time) ([]Position, error) {
	params := fmt.Sprintf("<dataInicio>%s</dataInicio><dataFinal>%s</dataFinal><idVeiculo>%d</idVeiculo>",
		from.Format(sascarDateFormat), to.Format(sascarDateFormat), vehicleID)
	body, err := c.call(ctx, "obterPacotePosicaoHistorico", params)
	if err != nil {
		return nil, err
	}
	return parsePositions(body), nil
}

// FetchVehicles requests the vehicles registered to the account.
func (c *Client) FetchVehicles(ctx context.Context) ([]models.Vehicle, error) {
	body, err := c.call(ctx, "obterVeiculos", "<quantidade>0</quantidade><idVeiculo>0</idVeiculo>")
	if err != nil {
		return nil, err
	}
	return parseVehicles(body), nil
}

// call issues one SOAP request and returns the raw response body.
func (c *Client) call(ctx context.Context, method, paramsXML string) (string, error) {
	if c.user == "" || c.pass == "" {
		return "", fmt.Errorf("%w: credentials not configured", ErrAuth)
	}

	envelope := fmt.Sprintf(`<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:web="http://webservice.web.integracao.sascar.com.br/">
   <soapenv:Header/>
   <soapenv:Body>
      <web:%s>
         <usuario>%s</usuario>
         <senha>%s</senha>
         %s
      </web:%s>
   </soapenv:Body>
</soapenv:Envelope>`, method, xmlEscape(c.user), xmlEscape(c.pass), paramsXML, method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(envelope))
	if err != nil {
		return "", fmt.Errorf("sascar: build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml;charset=UTF-8")
	req.Header.Set("SOAPAction", "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &TransientError{Op: method, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransientError{Op: method, Err: err}
	}
	body := string(raw)

	if fault := extractFault(body); fault != "" {
		if isAuthFault(fault) {
			return "", fmt.Errorf("%w: %s", ErrAuth, fault)
		}
		return "", &TransientError{Op: method, Err: fmt.Errorf("soap fault: %s", fault)}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", fmt.Errorf("%w: HTTP %d", ErrAuth, resp.StatusCode)
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return "", &TransientError{Op: method, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("sascar: %s returned HTTP %d", method, resp.StatusCode)
	}

	return body, nil
}

// positionXML mirrors one <return> element of a position response.
// Fields stay as strings so a single garbled record can be skipped
// without failing the whole batch.
type positionXML struct {
	IDVeiculo   string `xml:"idVeiculo"`
	Placa       string `xml:"placa"`
	DataPacote  string `xml:"dataPacote"`
	DataPosicao string `xml:"dataPosicao"`
	Latitude    string `xml:"latitude"`
	Longitude   string `xml:"longitude"`
	Odometro    string `xml:"odometro"`
	Ignicao     string `xml:"ignicao"`
	Velocidade  string `xml:"velocidade"`
}

// parsePositions extracts valid positions from a SOAP response body.
// Malformed records are logged and skipped; the run continues.
func parsePositions(body string) []Position {
	var positions []Position
	forEachReturn(body, func(dec *xml.Decoder, se xml.StartElement) {
		var rec positionXML
		if err := dec.DecodeElement(&rec, &se); err != nil {
			log.WithError(err).Warn("Skipping undecodable position record")
			return
		}
		pos, err := rec.toPosition()
		if err != nil {
			log.WithError(err).WithField("vehicle", rec.IDVeiculo).Warn("Skipping malformed position record")
			return
		}
		positions = append(positions, pos)
	})
	return positions
}

func (r positionXML) toPosition() (Position, error) {
	vid, err := strconv.ParseInt(strings.TrimSpace(r.IDVeiculo), 10, 64)
	if err != nil {
		return Position{}, fmt.Errorf("invalid idVeiculo %q", r.IDVeiculo)
	}

	tsStr := r.DataPacote
	if tsStr == "" {
		tsStr = r.DataPosicao
	}
	ts, err := parseSascarTime(tsStr)
	if err != nil {
		return Position{}, fmt.Errorf("invalid timestamp %q", tsStr)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(r.Latitude), 64)
	if err != nil {
		return Position{}, fmt.Errorf("invalid latitude %q", r.Latitude)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(r.Longitude), 64)
	if err != nil {
		return Position{}, fmt.Errorf("invalid longitude %q", r.Longitude)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Position{}, fmt.Errorf("coordinates out of range (%v, %v)", lat, lon)
	}

	odo, err := strconv.ParseFloat(strings.TrimSpace(r.Odometro), 64)
	if err != nil {
		return Position{}, fmt.Errorf("invalid odometro %q", r.Odometro)
	}

	speed := 0.0
	if s := strings.TrimSpace(r.Velocidade); s != "" {
		speed, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return Position{}, fmt.Errorf("invalid velocidade %q", r.Velocidade)
		}
	}

	ign := r.Ignicao == "true" || r.Ignicao == "1"

	return Position{
		VehicleID:  vid,
		Plate:      strings.TrimSpace(r.Placa),
		Timestamp:  ts,
		Latitude:   lat,
		Longitude:  lon,
		Odometer:   odo,
		IgnitionOn: ign,
		SpeedKmh:   speed,
	}, nil
}

// vehicleXML mirrors one <return> element of an obterVeiculos response.
type vehicleXML struct {
	IDVeiculo string `xml:"idVeiculo"`
	Placa     string `xml:"placa"`
}

func parseVehicles(body string) []models.Vehicle {
	var vehicles []models.Vehicle
	forEachReturn(body, func(dec *xml.Decoder, se xml.StartElement) {
		var rec vehicleXML
		if err := dec.DecodeElement(&rec, &se); err != nil {
			log.WithError(err).Warn("Skipping undecodable vehicle record")
			return
		}
		vid, err := strconv.ParseInt(strings.TrimSpace(rec.IDVeiculo), 10, 64)
		if err != nil {
			log.WithField("idVeiculo", rec.IDVeiculo).Warn("Skipping vehicle with invalid id")
			return
		}
		vehicles = append(vehicles, models.Vehicle{ID: vid, Plate: strings.TrimSpace(rec.Placa)})
	})
	return vehicles
}

// forEachReturn walks the SOAP body and invokes fn for every <return>
// element, regardless of namespace prefixes.
func forEachReturn(body string, fn func(*xml.Decoder, xml.StartElement)) {
	dec := xml.NewDecoder(strings.NewReader(body))
	for {
		tok, err := dec.Token()
		if err != nil {
			return
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "return" {
			continue
		}
		fn(dec, se)
	}
}

// parseSascarTime accepts the ISO-style timestamps the feed emits, with
// or without a zone offset.
func parseSascarTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		sascarDateFormat,
	}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func extractFault(body string) string {
	start := strings.Index(body, "<faultstring>")
	if start < 0 {
		return ""
	}
	rest := body[start+len("<faultstring>"):]
	end := strings.Index(rest, "</faultstring>")
	if end < 0 {
		return ""
	}
	return rest[:end]
}

// isAuthFault checks the fault text for the credential-rejection wording
// the vendor uses.
func isAuthFault(fault string) bool {
	lower := strings.ToLower(fault)
	for _, kw := range []string{"usuario", "usuário", "senha", "autentica", "credenc", "acesso negado"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func xmlEscape(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}
