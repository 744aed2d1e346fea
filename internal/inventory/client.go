package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"intranet-lending/internal/domain"
	"intranet-lending/internal/logger"
)

const (
	itemsPath      = "/inventory-object"
	lendingPath    = "/lending"
	contactsPath   = "/contact-details"
	refreshPath    = "/refresh-token"
	maxPageFollows = 1000
)

// Options configures a Client.
type Options struct {
	BaseURL        string
	PageLimit      int
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	RefreshHeader  string
	HTTPClient     *http.Client
}

// Client talks to the remote inventory system. Every call carries the
// current bearer token; a truthy refresh header on a successful response
// refreshes the token before the call returns.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	pageLimit     int
	refreshHeader string
	credentials   *Credentials
}

func NewClient(opts Options, credentials *Credentials) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		connect := opts.ConnectTimeout
		if connect <= 0 {
			connect = 10 * time.Second
		}
		total := opts.RequestTimeout
		if total <= 0 {
			total = 30 * time.Second
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.DialContext = (&net.Dialer{Timeout: connect}).DialContext
		transport.TLSHandshakeTimeout = connect
		httpClient = &http.Client{Transport: transport, Timeout: total}
	}
	limit := opts.PageLimit
	if limit <= 0 {
		limit = 100
	}
	header := opts.RefreshHeader
	if header == "" {
		header = "X-Token-Refresh"
	}
	return &Client{
		httpClient:    httpClient,
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		pageLimit:     limit,
		refreshHeader: header,
		credentials:   credentials,
	}
}

// Request performs one call and returns the raw JSON body. endpoint is a path
// relative to the base URL or an absolute URL (next-page links).
func (c *Client) Request(ctx context.Context, method, endpoint string, body any) (json.RawMessage, error) {
	return c.do(ctx, method, endpoint, body, false)
}

// RequestAll follows next-page links from endpoint and concatenates the
// entries of every page in order.
func (c *Client) RequestAll(ctx context.Context, endpoint string) ([]json.RawMessage, error) {
	var all []json.RawMessage
	seen := map[string]bool{}
	next := endpoint
	for page := 0; next != "" && page < maxPageFollows; page++ {
		if seen[next] {
			break
		}
		seen[next] = true

		raw, err := c.do(ctx, http.MethodGet, next, nil, false)
		if err != nil {
			return nil, err
		}
		entries, link, err := decodePage(raw)
		if err != nil {
			return nil, domain.E(domain.KindMalformedResponse, "inventory.paginate", "", fmt.Errorf("GET %s: %w", next, err))
		}
		all = append(all, entries...)
		next = link
	}
	return all, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, skipRefreshCheck bool) (json.RawMessage, error) {
	token, err := c.credentials.ResolveToken(ctx)
	if err != nil {
		return nil, err
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	raw, err := c.send(ctx, method, endpoint, payload, token, skipRefreshCheck)
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.Status == http.StatusUnauthorized {
		// another process may have rotated the token
		fresh, rerr := c.credentials.Reload(ctx)
		if rerr == nil && fresh != token {
			logger.Info("Inventory token rejected, retrying with reloaded token", "method", method, "endpoint", endpoint)
			return c.send(ctx, method, endpoint, payload, fresh, skipRefreshCheck)
		}
	}
	return raw, err
}

func (c *Client) send(ctx context.Context, method, endpoint string, payload []byte, token string, skipRefreshCheck bool) (json.RawMessage, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	target := c.resolve(endpoint)
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logger.RemoteCall(method, endpoint)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = domain.E(domain.KindNetwork, "inventory.request",
			"Das Inventarsystem ist nicht erreichbar.", fmt.Errorf("%s %s: %w", method, endpoint, err))
		logger.RemoteResult(method, endpoint, 0, err)
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		err = domain.E(domain.KindNetwork, "inventory.request",
			"Das Inventarsystem ist nicht erreichbar.", fmt.Errorf("%s %s: read body: %w", method, endpoint, err))
		logger.RemoteResult(method, endpoint, resp.StatusCode, err)
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := &HTTPError{
			Status:   resp.StatusCode,
			Method:   method,
			Endpoint: endpoint,
			Body:     string(respBody),
		}
		if resp.StatusCode == http.StatusForbidden {
			httpErr.Hint = scopeHint(endpoint)
		}
		logger.RemoteResult(method, endpoint, resp.StatusCode, httpErr)
		return nil, httpErr
	}

	if len(bytes.TrimSpace(respBody)) > 0 && !json.Valid(respBody) {
		err := domain.E(domain.KindMalformedResponse, "inventory.request",
			"Das Inventarsystem hat eine ungültige Antwort geliefert.", fmt.Errorf("%s %s: body is not JSON", method, endpoint))
		logger.RemoteResult(method, endpoint, resp.StatusCode, err)
		return nil, err
	}
	logger.RemoteResult(method, endpoint, resp.StatusCode, nil)

	if !skipRefreshCheck && headerTrue(resp.Header.Get(c.refreshHeader)) {
		if err := c.credentials.Refresh(ctx, c); err != nil {
			logger.Error("Inventory token refresh failed; calls will fail once the current token expires",
				"error", err)
		}
	}

	return json.RawMessage(respBody), nil
}

func (c *Client) resolve(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return c.baseURL + endpoint
}

func headerTrue(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}

// FetchRefreshedToken calls the refresh endpoint without re-checking the
// refresh header.
func (c *Client) FetchRefreshedToken(ctx context.Context) (string, error) {
	raw, err := c.do(ctx, http.MethodGet, refreshPath, nil, true)
	if err != nil {
		return "", err
	}
	f, err := decodeFields(raw)
	if err != nil {
		return "", domain.E(domain.KindMalformedResponse, "inventory.refresh_token", "", err)
	}
	return f.str("token", "accessToken"), nil
}

// ListItems fetches every inventory object. Entries that cannot be
// normalized are logged and left out.
func (c *Client) ListItems(ctx context.Context) ([]domain.RemoteItem, error) {
	items, rejected, err := c.ListItemsReport(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range rejected {
		logger.Warn("Skipping malformed inventory object", "index", r.Index, "remote_id", r.ID, "error", r.Reason)
	}
	return items, nil
}

// ListItemsReport fetches every inventory object and returns the entries
// that failed to normalize separately, so one bad entry does not fail the
// whole list.
func (c *Client) ListItemsReport(ctx context.Context) ([]domain.RemoteItem, []domain.RejectedItem, error) {
	entries, err := c.RequestAll(ctx, fmt.Sprintf("%s?limit=%d", itemsPath, c.pageLimit))
	if err != nil {
		return nil, nil, err
	}
	items := make([]domain.RemoteItem, 0, len(entries))
	var rejected []domain.RejectedItem
	for i, raw := range entries {
		item, err := normalizeItem(raw)
		if err != nil {
			r := domain.RejectedItem{Index: i, Reason: err.Error()}
			if f, ferr := decodeFields(raw); ferr == nil {
				r.ID = f.str("id", "_id", "inventoryObjectId")
			}
			rejected = append(rejected, r)
			continue
		}
		items = append(items, item)
	}
	return items, rejected, nil
}

// GetItem fetches a single inventory object.
func (c *Client) GetItem(ctx context.Context, itemID string) (*domain.RemoteItem, error) {
	raw, err := c.Request(ctx, http.MethodGet, itemsPath+"/"+url.PathEscape(itemID), nil)
	if err != nil {
		return nil, err
	}
	item, err := normalizeItem(unwrapData(raw))
	if err != nil {
		return nil, domain.E(domain.KindMalformedResponse, "inventory.get_item", "", err)
	}
	return &item, nil
}

// UpdateItem applies the assign/return mutation.
func (c *Client) UpdateItem(ctx context.Context, itemID string, patch domain.ItemPatch) error {
	if patch.Pieces < 0 {
		return domain.E(domain.KindValidation, "inventory.update_item", "Der Bestand darf nicht negativ werden.",
			fmt.Errorf("pieces %d for item %s", patch.Pieces, itemID))
	}
	_, err := c.Request(ctx, http.MethodPatch, itemsPath+"/"+url.PathEscape(itemID), patch)
	return err
}

// ListCustomFields returns the custom fields of an item. An empty query
// lists all of them.
func (c *Client) ListCustomFields(ctx context.Context, itemID, query string) ([]domain.CustomField, error) {
	endpoint := itemsPath + "/" + url.PathEscape(itemID) + "/custom-fields"
	if query != "" {
		endpoint += "?query=" + url.QueryEscape(query)
	}
	entries, err := c.RequestAll(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	out := make([]domain.CustomField, 0, len(entries))
	for _, raw := range entries {
		cf, err := normalizeCustomField(raw)
		if err != nil {
			return nil, domain.E(domain.KindMalformedResponse, "inventory.custom_fields", "", err)
		}
		out = append(out, cf)
	}
	return out, nil
}

// BulkUpdateCustomFields writes several custom field values in one call.
func (c *Client) BulkUpdateCustomFields(ctx context.Context, itemID string, values []domain.CustomFieldValue) error {
	_, err := c.Request(ctx, http.MethodPatch, itemsPath+"/"+url.PathEscape(itemID)+"/custom-fields/bulk-update", values)
	return err
}

// ListActiveLendings returns the lendings of an item whose return date lies
// in the future.
func (c *Client) ListActiveLendings(ctx context.Context, itemID string) ([]domain.Lending, error) {
	q := url.Values{}
	q.Set("parentInventoryObject", itemID)
	q.Set("futureReturnDate", "true")
	q.Set("limit", strconv.Itoa(c.pageLimit))
	entries, err := c.RequestAll(ctx, lendingPath+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	out := make([]domain.Lending, 0, len(entries))
	for _, raw := range entries {
		l, err := normalizeLending(raw)
		if err != nil {
			return nil, domain.E(domain.KindMalformedResponse, "inventory.lendings", "", err)
		}
		out = append(out, l)
	}
	return out, nil
}

// CreateLending records a confirmed loan and returns it.
func (c *Client) CreateLending(ctx context.Context, req domain.LendingRequest) (*domain.Lending, error) {
	raw, err := c.Request(ctx, http.MethodPost, lendingPath, req)
	if err != nil {
		return nil, err
	}
	l, err := normalizeLending(unwrapData(raw))
	if err != nil {
		return nil, domain.E(domain.KindMalformedResponse, "inventory.create_lending", "", err)
	}
	if l.ItemID == "" {
		l.ItemID = req.ItemID
	}
	return &l, nil
}

// SetLendingReturnDate closes a lending.
func (c *Client) SetLendingReturnDate(ctx context.Context, lendingID, returnDate string) error {
	_, err := c.Request(ctx, http.MethodPatch, lendingPath+"/"+url.PathEscape(lendingID),
		map[string]string{"returnDate": returnDate})
	return err
}

// SearchContacts searches the address book by display name.
func (c *Client) SearchContacts(ctx context.Context, name string) ([]domain.Contact, error) {
	raw, err := c.Request(ctx, http.MethodGet, contactsPath+"?search="+url.QueryEscape(name), nil)
	if err != nil {
		return nil, err
	}
	entries, _, err := decodePage(raw)
	if err != nil {
		return nil, domain.E(domain.KindMalformedResponse, "inventory.contacts", "", err)
	}
	out := make([]domain.Contact, 0, len(entries))
	for _, entry := range entries {
		contact, err := normalizeContact(entry)
		if err != nil {
			return nil, domain.E(domain.KindMalformedResponse, "inventory.contacts", "", err)
		}
		out = append(out, contact)
	}
	return out, nil
}

// unwrapData returns the "data" member of single-object envelopes.
func unwrapData(raw json.RawMessage) json.RawMessage {
	f, err := decodeFields(raw)
	if err != nil {
		return raw
	}
	if data, ok := f["data"]; ok && !isNull(data) && bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		return data
	}
	return raw
}
