package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"evmwallet/pkg/models"
	"evmwallet/pkg/utils"
)

// PageSize is the fixed number of entries fetched per call. There is no
// pagination cursor; every fetch replaces the previous page.
const PageSize = 10

// Client queries an Etherscan-style explorer API for an address's recent
// transactions.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type explorerTx struct {
	Hash      string `json:"hash"`
	From      string `json:"from"`
	To        string `json:"to"`
	Value     string `json:"value"`
	TimeStamp string `json:"timeStamp"`
	IsError   string `json:"isError"`
}

type explorerResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// Fetch returns the most recent transfers for an address, newest first.
// Request failures and "No transactions found" alike yield an empty slice;
// callers rendering history treat both as "nothing to show".
func (c *Client) Fetch(ctx context.Context, address string, chainID int64) []models.HistoryEntry {
	if address == "" || chainID == 0 {
		return nil
	}

	q := url.Values{}
	q.Set("chainid", strconv.FormatInt(chainID, 10))
	q.Set("module", "account")
	q.Set("action", "txlist")
	q.Set("address", address)
	q.Set("startblock", "0")
	q.Set("endblock", "99999999")
	q.Set("page", "1")
	q.Set("offset", strconv.Itoa(PageSize))
	q.Set("sort", "desc")
	if c.apiKey != "" {
		q.Set("apikey", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		log.Printf("history request for %s: %v", utils.ShortenAddress(address), err)
		return nil
	}

	resp, err := c.http.Do(req)
	if err != nil {
		log.Printf("history fetch for %s: %v", utils.ShortenAddress(address), err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	var body explorerResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		log.Printf("history decode for %s: %v", utils.ShortenAddress(address), err)
		return nil
	}

	// Status "0" covers both a fresh wallet ("No transactions found") and
	// genuine upstream failures; the result is empty either way.
	if body.Status != "1" {
		return nil
	}

	var raw []explorerTx
	if err := json.Unmarshal(body.Result, &raw); err != nil {
		log.Printf("history result decode for %s: %v", utils.ShortenAddress(address), err)
		return nil
	}

	entries := make([]models.HistoryEntry, 0, len(raw))
	for _, tx := range raw {
		entries = append(entries, normalize(tx, address))
	}
	return entries
}

// Classify tags a transfer relative to the wallet address, comparing
// case-insensitively.
func Classify(from, to, address string) models.Direction {
	fromMine := strings.EqualFold(from, address)
	toMine := strings.EqualFold(to, address)
	switch {
	case fromMine && toMine:
		return models.DirectionSelf
	case fromMine:
		return models.DirectionSend
	default:
		return models.DirectionReceive
	}
}

func normalize(tx explorerTx, address string) models.HistoryEntry {
	entry := models.HistoryEntry{
		Hash:      tx.Hash,
		From:      tx.From,
		To:        tx.To,
		Failed:    tx.IsError == "1",
		Direction: Classify(tx.From, tx.To, address),
	}

	if wei, ok := new(big.Int).SetString(tx.Value, 10); ok {
		entry.Value = utils.FormatSmartEthBig(utils.WeiToEth(wei))
	} else {
		entry.Value = "0"
	}

	if unix, err := strconv.ParseInt(tx.TimeStamp, 10, 64); err == nil {
		entry.Timestamp = time.Unix(unix, 0)
	}

	return entry
}

// ExplorerTxURL builds a link to the transaction on the chain's explorer,
// when the registry knows one.
func ExplorerTxURL(explorerBase, hash string) string {
	if explorerBase == "" || hash == "" {
		return ""
	}
	return fmt.Sprintf("%s/tx/%s", strings.TrimRight(explorerBase, "/"), hash)
}
