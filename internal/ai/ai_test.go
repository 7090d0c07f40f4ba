package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-documind-backend/internal/config"
)

func TestPlainText_StripsTagsAndDecodes(t *testing.T) {
	in := `<h1>Title</h1><p>Hello&nbsp;<b>bold</b> world &amp; more</p><script>var x = 1;</script><br/>end`
	got := PlainText(in)
	assert.Equal(t, "Title Hello bold world & more end", got)
	assert.NotContains(t, got, "var x")
	assert.Equal(t, "", PlainText(""))
}

func TestWordCount(t *testing.T) {
	assert.Equal(t, 0, WordCount(""))
	assert.Equal(t, 0, WordCount(PlainText("<p></p>")))
	assert.Equal(t, 4, WordCount(PlainText("<p>one two</p><p>three</p> four")))
	assert.Equal(t, 2, WordCount(PlainText("<p>glued</p><p>together</p>")))
	assert.Equal(t, 3, WordCount(" a\tb\n c "))
}

func TestExcerpt_RuneSafe(t *testing.T) {
	assert.Equal(t, "", Excerpt("abc", 0))
	assert.Equal(t, "abc", Excerpt("abc", 5))
	assert.Equal(t, "καλη", Excerpt("καλημέρα", 4))
}

func TestTemplateGenerator_PerType(t *testing.T) {
	g := NewTemplateGenerator()
	ctx := context.Background()
	base := Request{Prompt: "give me an overview", Title: "Test Document", PlainText: "one two three"}

	outs := map[string]string{}
	for _, typ := range []string{"write", "edit", "study_guide", "summarize"} {
		req := base
		req.AssistanceType = typ
		out, err := g.Generate(ctx, req)
		require.NoError(t, err, typ)
		require.NotEmpty(t, out, typ)
		outs[typ] = out

		again, err := g.Generate(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, out, again, "template output must be deterministic for %s", typ)
	}

	assert.Contains(t, outs["summarize"], "Summary")
	assert.Contains(t, outs["summarize"], "Test Document")
	assert.Contains(t, outs["summarize"], "3 words")
	assert.Contains(t, outs["summarize"], "Give Me An Overview")
	assert.Contains(t, outs["study_guide"], "Test Document")
	assert.Contains(t, outs["write"], "give me an overview")

	seen := map[string]bool{}
	for typ, out := range outs {
		assert.False(t, seen[out], "template for %s duplicates another type", typ)
		seen[out] = true
	}

	_, err := g.Generate(ctx, Request{AssistanceType: "translate"})
	assert.Error(t, err)
}

func TestTemplateGenerator_BlankTitle(t *testing.T) {
	out, err := NewTemplateGenerator().Generate(context.Background(), Request{AssistanceType: "study_guide"})
	require.NoError(t, err)
	assert.Contains(t, out, "Untitled Document")
}

func TestNew_SelectsProvider(t *testing.T) {
	g, err := New(config.AIConfig{})
	require.NoError(t, err)
	assert.IsType(t, &TemplateGenerator{}, g)

	g, err = New(config.AIConfig{Provider: "OpenAI", APIKey: "k", BaseURL: "http://x", Model: "m"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAICompatibleGenerator{}, g)

	_, err = New(config.AIConfig{Provider: "openai"})
	assert.Error(t, err)

	_, err = New(config.AIConfig{Provider: "magic"})
	assert.Error(t, err)
}

func TestOpenAICompatibleGenerator_Generate(t *testing.T) {
	var gotAuth string
	var gotBody struct {
		Model    string        `json:"model"`
		Messages []ChatMessage `json:"messages"`
		Stream   bool          `json:"stream"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  <h2>Summary</h2>  "}}]}`))
	}))
	defer srv.Close()

	g := NewOpenAICompatibleGenerator(config.AIConfig{BaseURL: srv.URL + "/v1/", APIKey: "sk-1", Model: "m1", Timeout: time.Second})
	out, err := g.Generate(context.Background(), Request{Prompt: "sum it", Context: "ctx blob", AssistanceType: "summarize"})
	require.NoError(t, err)
	assert.Equal(t, "<h2>Summary</h2>", out)
	assert.Equal(t, "Bearer sk-1", gotAuth)
	assert.Equal(t, "m1", gotBody.Model)
	assert.False(t, gotBody.Stream)
	require.Len(t, gotBody.Messages, 2)
	assert.Equal(t, "system", gotBody.Messages[0].Role)
	assert.Contains(t, gotBody.Messages[1].Content, "ctx blob")
	assert.Contains(t, gotBody.Messages[1].Content, "sum it")
}

func TestOpenAICompatibleGenerator_Errors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"status", http.StatusTooManyRequests, `{"error":"slow down"}`, "status 429"},
		{"bad json", http.StatusOK, `not json`, "parse llm json"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "empty llm choices"},
		{"blank content", http.StatusOK, `{"choices":[{"message":{"content":"  "}}]}`, "empty llm content"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()
			g := NewOpenAICompatibleGenerator(config.AIConfig{BaseURL: srv.URL, APIKey: "k", Model: "m"})
			_, err := g.Generate(context.Background(), Request{AssistanceType: "write"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestGeneratorFunc(t *testing.T) {
	var g Generator = GeneratorFunc(func(_ context.Context, r Request) (string, error) { return "x:" + r.Prompt, nil })
	out, err := g.Generate(context.Background(), Request{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "x:p", out)
}
