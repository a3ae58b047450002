package history

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"evmwallet/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const addrA = "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"
const addrB = "0x00000000219ab540356cBB839Cbe05303d7705Fa"

func TestClassify(t *testing.T) {
	assert.Equal(t, models.DirectionSelf, Classify(addrA, addrA, addrA))
	assert.Equal(t, models.DirectionSend, Classify(addrA, addrB, addrA))
	assert.Equal(t, models.DirectionReceive, Classify(addrB, addrA, addrA))

	// Comparison must be case-insensitive.
	assert.Equal(t, models.DirectionSend, Classify(addrA, addrB, "0XAB5801A7D398351B8BE11C439E05C5B3259AEC9B"))
}

func TestFetch(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "1",
			"message": "OK",
			"result": []map[string]string{
				{
					"hash":      "0xaaa",
					"from":      addrA,
					"to":        addrB,
					"value":     "1500000000000000000",
					"timeStamp": "1700000000",
					"isError":   "0",
				},
				{
					"hash":      "0xbbb",
					"from":      addrB,
					"to":        addrA,
					"value":     "10000000000",
					"timeStamp": "1699999000",
					"isError":   "1",
				},
			},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "testkey")
	entries := c.Fetch(context.Background(), addrA, 11155111)
	require.Len(t, entries, 2)

	assert.Equal(t, "account", gotQuery["module"])
	assert.Equal(t, "txlist", gotQuery["action"])
	assert.Equal(t, "11155111", gotQuery["chainid"])
	assert.Equal(t, "10", gotQuery["offset"])
	assert.Equal(t, "desc", gotQuery["sort"])
	assert.Equal(t, "testkey", gotQuery["apikey"])

	assert.Equal(t, models.DirectionSend, entries[0].Direction)
	assert.Equal(t, "1.5", entries[0].Value)
	assert.False(t, entries[0].Failed)
	assert.Equal(t, int64(1700000000), entries[0].Timestamp.Unix())

	assert.Equal(t, models.DirectionReceive, entries[1].Direction)
	assert.Equal(t, "0.00000001", entries[1].Value)
	assert.True(t, entries[1].Failed)
}

func TestFetch_NoTransactions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "0",
			"message": "No transactions found",
			"result":  []interface{}{},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "")
	assert.Empty(t, c.Fetch(context.Background(), addrA, 1))
}

func TestFetch_ErrorsDegradeToEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	server.Close() // refuse connections entirely

	c := NewClient(server.URL, "")
	assert.Empty(t, c.Fetch(context.Background(), addrA, 1))
}

func TestFetch_SkipsWithoutAddress(t *testing.T) {
	c := NewClient("http://unused.invalid", "")
	assert.Empty(t, c.Fetch(context.Background(), "", 1))
	assert.Empty(t, c.Fetch(context.Background(), addrA, 0))
}

func TestExplorerTxURL(t *testing.T) {
	assert.Equal(t, "https://amoy.polygonscan.com/tx/0xabc", ExplorerTxURL("https://amoy.polygonscan.com/", "0xabc"))
	assert.Equal(t, "", ExplorerTxURL("", "0xabc"))
}
