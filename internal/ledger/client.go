package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// HTTPClient invokes contract functions through the Soroban gateway, which
// exposes one endpoint per function: POST /<function> for invocations and
// GET /<function>?<params> for read-only calls.
type HTTPClient struct {
	baseURL    string
	contractID string
	httpClient *http.Client
}

func NewHTTPClient(baseURL, contractID string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		contractID: contractID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *HTTPClient) Mode() string { return "ledger" }

type gatewayReceipt struct {
	Hash   string `json:"hash"`
	Status string `json:"status"`
}

func (c *HTTPClient) Invoke(ctx context.Context, op Operation, params Params) (Receipt, error) {
	fn, ok := op.Function()
	if !ok {
		return Receipt{}, fmt.Errorf("%w: %s", ErrNoFunction, op)
	}

	ctx, span := otel.Tracer("ledger").Start(ctx, "ledger.invoke "+fn)
	defer span.End()
	span.SetAttributes(attribute.String("ledger.function", fn), attribute.String("ledger.trip_id", params.String("trip_id")))

	body, err := json.Marshal(params)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrCallFailed, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+fn, bytes.NewReader(body))
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrCallFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	var gr gatewayReceipt
	if err := c.do(req, &gr); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Receipt{}, err
	}
	if gr.Status != "" && gr.Status != "SUCCESS" {
		err := fmt.Errorf("%w: %s returned status %s", ErrCallFailed, fn, gr.Status)
		span.SetStatus(codes.Error, err.Error())
		return Receipt{}, err
	}

	return Receipt{
		TxHash:          gr.Hash,
		ContractAddress: c.contractID,
		Status:          statusAfter[op],
	}, nil
}

func (c *HTTPClient) Query(ctx context.Context, op Operation, params Params) (Params, error) {
	fn, ok := op.Function()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoFunction, op)
	}

	ctx, span := otel.Tracer("ledger").Start(ctx, "ledger.query "+fn)
	defer span.End()

	q := url.Values{}
	for k, v := range params {
		q.Set(k, fmt.Sprint(v))
	}
	u := c.baseURL + "/" + fn
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCallFailed, err)
	}

	var result Params
	if err := c.do(req, &result); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return result, nil
}

var errNotFound = fmt.Errorf("%w: not found", ErrCallFailed)

func (c *HTTPClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCallFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrCallFailed, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrCallFailed, err)
	}
	return nil
}
