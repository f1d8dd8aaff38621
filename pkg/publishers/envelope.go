package publishers

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// attribute is a message attribute copied onto every queue message so
// consumers can route a harvest without decoding the body.
type attribute struct {
	name    string
	value   string
	numeric bool
}

// envelope is the provider-neutral form of an outgoing harvest event.
type envelope struct {
	body  []byte
	attrs []attribute
}

func encodeEnvelope(evt Event) (envelope, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return envelope{}, fmt.Errorf("marshal event: %w", err)
	}
	return envelope{
		body: body,
		attrs: []attribute{
			{name: "run_id", value: evt.RunID},
			{name: "harvested_at", value: evt.HarvestedAt.Format(time.RFC3339)},
			{name: "source_count", value: strconv.Itoa(evt.SourceCount), numeric: true},
			{name: "article_count", value: strconv.Itoa(evt.ArticleCount), numeric: true},
		},
	}, nil
}

// stringAttrs flattens the attributes for providers without typed values.
func (e envelope) stringAttrs() map[string]string {
	out := make(map[string]string, len(e.attrs))
	for _, a := range e.attrs {
		out[a.name] = a.value
	}
	return out
}

func (a attribute) dataType() string {
	if a.numeric {
		return "Number"
	}
	return "String"
}
