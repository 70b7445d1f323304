package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage_UnmarshalDumpJSON(t *testing.T) {
	data := `[
		[1, 1],
		[2, {"category": "danbooru", "id": 7}],
		[3, "https://cdn.example.com/a.jpg", {"category": "danbooru", "filename": "a"}],
		[6, "https://example.com/child", {"_extractor": "x"}]
	]`

	var messages []Message
	require.NoError(t, json.Unmarshal([]byte(data), &messages))
	require.Len(t, messages, 4)

	assert.Equal(t, MessageVersion, messages[0].Kind)
	assert.Nil(t, messages[0].Metadata)

	assert.Equal(t, MessageDirectory, messages[1].Kind)
	assert.Empty(t, messages[1].URL)
	assert.Equal(t, "danbooru", messages[1].Metadata["category"])

	assert.Equal(t, MessageURL, messages[2].Kind)
	assert.Equal(t, "https://cdn.example.com/a.jpg", messages[2].URL)
	assert.Equal(t, "a", messages[2].Metadata["filename"])

	assert.Equal(t, MessageQueue, messages[3].Kind)
	assert.Equal(t, "https://example.com/child", messages[3].URL)
}

func TestMessage_UnmarshalInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not an array", `{"kind": 3}`},
		{"empty array", `[]`},
		{"kind not a number", `["3", "url", {}]`},
		{"url not a string", `[3, 5, {}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg Message
			assert.Error(t, json.Unmarshal([]byte(tt.data), &msg))
		})
	}
}

func TestMessage_MarshalArrayForm(t *testing.T) {
	dir := Message{Kind: MessageDirectory, Metadata: map[string]interface{}{"id": 1}}
	data, err := json.Marshal(dir)
	require.NoError(t, err)
	assert.JSONEq(t, `[2, {"id": 1}]`, string(data))

	url := Message{Kind: MessageURL, URL: "https://cdn.example.com/a.jpg"}
	data, err = json.Marshal(url)
	require.NoError(t, err)
	assert.JSONEq(t, `[3, "https://cdn.example.com/a.jpg", null]`, string(data))
}

func TestMessageKind_String(t *testing.T) {
	assert.Equal(t, "Url", MessageURL.String())
	assert.Equal(t, "Directory", MessageDirectory.String())
	assert.Equal(t, "Message(42)", MessageKind(42).String())
}

func TestPartitionMessages(t *testing.T) {
	messages := []Message{
		{Kind: MessageVersion},
		{Kind: MessageDirectory, Metadata: map[string]interface{}{"n": 1}},
		{Kind: MessageURL, URL: "u1"},
		{Kind: MessageQueue, URL: "q1"},
		{Kind: MessageURL, URL: "u2"},
		{Kind: MessageDirectory, Metadata: map[string]interface{}{"n": 2}},
		{Kind: MessageURL, URL: "u3"},
	}

	urls, dirs := PartitionMessages(messages)

	require.Len(t, urls, 3)
	assert.Equal(t, "u1", urls[0].URL)
	assert.Equal(t, "u2", urls[1].URL)
	assert.Equal(t, "u3", urls[2].URL)
	require.Len(t, dirs, 2)
	assert.Equal(t, 1, dirs[0].Metadata["n"])
}

func TestSanitizeMetadata(t *testing.T) {
	date := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	meta := map[string]interface{}{
		"date":   date,
		"id":     int64(5),
		"tags":   []interface{}{"a", date},
		"nested": map[string]interface{}{"when": date},
		"fn":     func() {},
		"ch":     make(chan int),
	}

	out := SanitizeMetadata(meta)

	assert.Equal(t, date.String(), out["date"])
	assert.Equal(t, int64(5), out["id"])
	assert.Equal(t, []interface{}{"a", date.String()}, out["tags"])
	assert.Equal(t, date.String(), out["nested"].(map[string]interface{})["when"])
	assert.IsType(t, "", out["fn"])
	assert.IsType(t, "", out["ch"])

	_, err := json.Marshal(out)
	assert.NoError(t, err)
	assert.Nil(t, SanitizeMetadata(nil))
}

func TestMessage_UnmarshalKeepsLargeIntegers(t *testing.T) {
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(`[3, "https://pbs.twimg.com/a.jpg", {"tweet_id": 1790000000000000123, "nested": {"ids": [1790000000000000125]}}]`), &msg))

	assert.Equal(t, json.Number("1790000000000000123"), msg.Metadata["tweet_id"])

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"tweet_id":1790000000000000123`)
	assert.Contains(t, string(data), `[1790000000000000125]`)
}
