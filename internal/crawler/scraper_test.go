package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/backcourt/backcourt/internal/logger"
	"github.com/backcourt/backcourt/pkg/adapters"
	"github.com/backcourt/backcourt/pkg/httpclient"
)

type fakeResponse struct {
	status int
	body   []byte
}

func (r fakeResponse) StatusCode() int { return r.status }
func (r fakeResponse) Body() []byte    { return r.body }

// fakeClient routes by URL; a missing route is a transport error.
type fakeClient struct {
	pages  map[string]string
	panics map[string]bool
	calls  atomic.Int32
}

func (c *fakeClient) Get(ctx context.Context, url string, _ map[string]string) (httpclient.Response, error) {
	c.calls.Add(1)
	if c.panics[url] {
		panic("selector engine exploded")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, ok := c.pages[url]
	if !ok {
		return nil, errors.New("dial tcp: connection refused")
	}
	return fakeResponse{status: http.StatusOK, body: []byte(body)}, nil
}

func newObservedLogger() (logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return logger.FromZap(zap.New(core)), logs
}

func listAdapter(name, addr string) adapters.SiteAdapter {
	return adapters.SiteAdapter{
		Name:          name,
		Address:       addr,
		BaseURL:       "https://" + name + ".test",
		TitleSelector: "li > a",
		LinkSelector:  "li > a",
	}
}

func listPage(titles ...string) string {
	var b strings.Builder
	b.WriteString("<ul>")
	for i, t := range titles {
		fmt.Fprintf(&b, `<li><a href="/%d">%s</a></li>`, i, t)
	}
	b.WriteString("</ul>")
	return b.String()
}

func TestScrapeAll_PartialFailure(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(listPage("One", "Two")))
	}))
	defer good.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer broken.Close()

	log, logs := newObservedLogger()
	s := NewScraper(httpclient.New(httpclient.Options{Timeout: 2 * time.Second}), log)

	got := s.ScrapeAll(context.Background(), []adapters.SiteAdapter{
		listAdapter("broken", broken.URL),
		listAdapter("good", good.URL),
	})

	require.Len(t, got, 2)
	assert.Equal(t, "One", got[0].Title)
	assert.Equal(t, "Two", got[1].Title)
	assert.Equal(t, "https://good.test/0", got[0].URLValue())
	for _, a := range got {
		assert.Equal(t, "good", a.Source)
	}

	failures := logs.FilterField(zap.String("event", "scrape_error")).All()
	require.Len(t, failures, 1)
	assert.Equal(t, "broken", failures[0].ContextMap()["adapter"])
	assert.Contains(t, failures[0].ContextMap()["error"], "status 500")
}

func TestScrapeAll_PreservesRegistryOrder(t *testing.T) {
	client := &fakeClient{pages: map[string]string{}}
	var sites []adapters.SiteAdapter
	for i := range 12 {
		name := fmt.Sprintf("site%02d", i)
		addr := "https://" + name + ".test/news"
		client.pages[addr] = listPage(name+"-a", name+"-b")
		sites = append(sites, listAdapter(name, addr))
	}

	s := NewScraper(client, nil, WithWorkers(5))
	got := s.ScrapeAll(context.Background(), sites)

	require.Len(t, got, 24)
	for i, site := range sites {
		assert.Equal(t, site.Name+"-a", got[2*i].Title)
		assert.Equal(t, site.Name+"-b", got[2*i+1].Title)
		assert.Equal(t, site.Name, got[2*i].Source)
	}
}

func TestScrapeAll_PanicIsIsolated(t *testing.T) {
	client := &fakeClient{
		pages:  map[string]string{"https://ok.test/": listPage("Survivor")},
		panics: map[string]bool{"https://bad.test/": true},
	}
	log, logs := newObservedLogger()
	s := NewScraper(client, log)

	got := s.ScrapeAll(context.Background(), []adapters.SiteAdapter{
		listAdapter("bad", "https://bad.test/"),
		listAdapter("ok", "https://ok.test/"),
	})

	require.Len(t, got, 1)
	assert.Equal(t, "Survivor", got[0].Title)
	assert.Equal(t, 1, logs.FilterField(zap.String("event", "scrape_panic")).Len())
}

func TestScrapeAll_AllFailingReturnsEmpty(t *testing.T) {
	s := NewScraper(&fakeClient{}, nil)

	got := s.ScrapeAll(context.Background(), []adapters.SiteAdapter{
		listAdapter("a", "https://a.test/"),
		listAdapter("b", "https://b.test/"),
	})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestScrapeAll_NoSites(t *testing.T) {
	s := NewScraper(&fakeClient{}, nil)
	got := s.ScrapeAll(context.Background(), nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestScrapeAll_CancelledContext(t *testing.T) {
	client := &fakeClient{pages: map[string]string{"https://a.test/": listPage("x")}}
	s := NewScraper(client, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := s.ScrapeAll(ctx, []adapters.SiteAdapter{listAdapter("a", "https://a.test/")})
	assert.Empty(t, got)
	assert.Zero(t, client.calls.Load())
}

func TestScrape_Timeout(t *testing.T) {
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()
	defer close(release)

	log, logs := newObservedLogger()
	s := NewScraper(httpclient.New(httpclient.Options{}), log, WithTimeout(50*time.Millisecond))

	start := time.Now()
	got := s.Scrape(context.Background(), listAdapter("slow", slow.URL))

	assert.Empty(t, got)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 1, logs.FilterField(zap.String("event", "scrape_error")).Len())
}

func TestScrape_SendsAdapterHeaders(t *testing.T) {
	var gotLang, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLang = r.Header.Get("Accept-Language")
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write([]byte(listPage("Hello")))
	}))
	defer srv.Close()

	site := listAdapter("hdr", srv.URL)
	site.Headers = map[string]string{"Accept-Language": "en-CA"}

	s := NewScraper(httpclient.New(httpclient.Options{Timeout: time.Second}), nil)
	got := s.Scrape(context.Background(), site)

	require.Len(t, got, 1)
	assert.Equal(t, "en-CA", gotLang)
	assert.NotEmpty(t, gotAccept)
}

func TestScrape_TruncatesLargeBodies(t *testing.T) {
	page := listPage("Kept") + strings.Repeat("<p>filler</p>", 200) + listPage("Dropped")
	client := &fakeClient{pages: map[string]string{"https://big.test/": page}}
	log, logs := newObservedLogger()

	s := NewScraper(client, log, WithMaxBodyBytes(len(listPage("Kept"))+10))
	got := s.Scrape(context.Background(), listAdapter("big", "https://big.test/"))

	require.Len(t, got, 1)
	assert.Equal(t, "Kept", got[0].Title)
	assert.Equal(t, 1, logs.FilterField(zap.String("event", "truncation")).Len())
}

func TestScrape_ContainerMode(t *testing.T) {
	page := `
<div class="card"><h3>No link</h3></div>
<div class="card"><h3>Linked</h3><a href="/linked">go</a></div>`
	client := &fakeClient{pages: map[string]string{"https://cards.test/": page}}

	site := adapters.SiteAdapter{
		Name:              "cards",
		Address:           "https://cards.test/",
		BaseURL:           "https://cards.test",
		ContainerSelector: ".card",
		TitleSelector:     "h3",
		LinkSelector:      "a",
	}
	got := NewScraper(client, nil).Scrape(context.Background(), site)

	require.Len(t, got, 2)
	assert.Nil(t, got[0].URL)
	assert.Equal(t, "https://cards.test/linked", got[1].URLValue())
}

func TestResponseSnippet(t *testing.T) {
	assert.Equal(t, "<empty>", responseSnippet(nil))
	assert.Equal(t, "short", responseSnippet([]byte("  short \n")))

	long := responseSnippet([]byte(strings.Repeat("x", 600)))
	assert.Len(t, long, 515)
	assert.True(t, strings.HasSuffix(long, "..."))
}

func TestScrape_DefaultClientSendsBrowserUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(listPage("Hello")))
	}))
	defer srv.Close()

	got := NewScraper(nil, nil).Scrape(context.Background(), listAdapter("ua", srv.URL))

	require.Len(t, got, 1)
	assert.Equal(t, httpclient.DefaultUserAgent, gotUA)
	assert.NotContains(t, gotUA, "resty")
}

func TestScrape_DefaultClientCapsLargeBodies(t *testing.T) {
	kept := listPage("Kept")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(kept + strings.Repeat("<p>filler</p>", 1000) + listPage("Dropped")))
	}))
	defer srv.Close()

	log, logs := newObservedLogger()
	s := NewScraper(nil, log, WithMaxBodyBytes(len(kept)+10))
	got := s.Scrape(context.Background(), listAdapter("big", srv.URL))

	require.Len(t, got, 1)
	assert.Equal(t, "Kept", got[0].Title)
	assert.Equal(t, 1, logs.FilterField(zap.String("event", "truncation")).Len())
}

func TestScrapeAll_NilContext(t *testing.T) {
	client := &fakeClient{pages: map[string]string{"https://a.test/": listPage("x")}}
	s := NewScraper(client, nil)

	var ctx context.Context
	got := s.ScrapeAll(ctx, []adapters.SiteAdapter{listAdapter("a", "https://a.test/")})
	require.Len(t, got, 1)
	assert.Equal(t, "x", got[0].Title)
}
