package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nlpodyssey/openai-agents-go/agents"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casestudy/internal/domain"
	"casestudy/internal/infra/postgres"
	"casestudy/internal/mail"
	"casestudy/internal/rag"
	"casestudy/internal/search"
)

type fakeRenderer struct {
	title, content string
	err            error
}

func (f *fakeRenderer) Render(_ context.Context, title, content string) (domain.Document, error) {
	f.title, f.content = title, content
	if f.err != nil {
		return domain.Document{}, f.err
	}
	return domain.Document{Path: "/tmp/out/x.pdf", Locator: "file:///tmp/out/x.pdf"}, nil
}

type fakeSearcher struct {
	query string
	n     int
	res   search.Result
	err   error
}

func (f *fakeSearcher) Search(_ context.Context, q string, n int) (search.Result, error) {
	f.query, f.n = q, n
	return f.res, f.err
}

type fakeMailer struct{ got mail.Message }

func (f *fakeMailer) Send(_ context.Context, msg mail.Message) domain.ToolStatus {
	f.got = msg
	return domain.ToolStatus{Status: domain.StatusEmailSent}
}

type fakeRetriever struct {
	res rag.Result
	err error
}

func (f *fakeRetriever) Query(_ context.Context, _ string, _ int) (rag.Result, error) {
	return f.res, f.err
}

func TestCreatePDF(t *testing.T) {
	r := &fakeRenderer{}
	s := &Set{Renderer: r}

	out, err := s.CreatePDF(context.Background(), domain.DocumentRequest{Title: "Case", Content: "**Key Issues**"})
	require.NoError(t, err)
	assert.Equal(t, CreatePDFOutput{Status: domain.StatusPDFGenerated, PDFURL: "file:///tmp/out/x.pdf"}, out)
	assert.Equal(t, "Case", r.title)

	r.err = domain.ErrRender
	_, err = s.CreatePDF(context.Background(), CreatePDFInput{Title: "Case"})
	assert.ErrorIs(t, err, domain.ErrRender)

	_, err = (&Set{}).CreatePDF(context.Background(), CreatePDFInput{})
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestSearchGoogle_FailureIsEmptyResults(t *testing.T) {
	fs := &fakeSearcher{err: errors.New("upstream down")}
	s := &Set{Searcher: fs}

	res := s.SearchGoogle(context.Background(), SearchInput{Query: "tesla", NResults: 3})
	assert.NotNil(t, res.Results)
	assert.Empty(t, res.Results)
	assert.Equal(t, 3, fs.n)

	res = (&Set{}).SearchGoogle(context.Background(), SearchInput{Query: "tesla"})
	assert.NotNil(t, res.Results)
}

func TestCaseStudyRAG_FailureIsStatus(t *testing.T) {
	s := &Set{Retriever: &fakeRetriever{err: domain.ErrUpstream}}
	out := s.CaseStudyRAG(context.Background(), RAGInput{Query: "swot"})
	assert.Equal(t, StatusRAGFailed, out.Status)
	assert.NotEmpty(t, out.Details)
	assert.NotNil(t, out.Results)

	hit := rag.Hit{Match: postgres.Match{Text: "SWOT"}, RelevanceScore: 0.9}
	s.Retriever = &fakeRetriever{res: rag.Result{Results: []rag.Hit{hit}, TotalFound: 4, Query: "swot"}}
	out = s.CaseStudyRAG(context.Background(), RAGInput{Query: "swot"})
	assert.Empty(t, out.Status)
	assert.Equal(t, 4, out.TotalFound)

	b, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"results":[{"id":"","source":"","text":"SWOT","score":0,"relevanceScore":0.9}],"totalFound":4,"query":"swot"}`, string(b))
}

func TestSendMail_Disabled(t *testing.T) {
	st := (&Set{}).SendMail(context.Background(), mail.Message{Recipient: "a@b.c"})
	assert.Equal(t, domain.StatusEmailFailed, st.Status)
}

func findTool(t *testing.T, list []agents.Tool, name string) agents.FunctionTool {
	t.Helper()
	for _, tool := range list {
		if ft, ok := tool.(agents.FunctionTool); ok && ft.Name == name {
			return ft
		}
	}
	t.Fatalf("tool %s not registered", name)
	return agents.FunctionTool{}
}

func TestFunctionTools_OnlyConfigured(t *testing.T) {
	assert.Empty(t, (&Set{}).FunctionTools())

	s := &Set{Renderer: &fakeRenderer{}, Searcher: &fakeSearcher{}, Mailer: &fakeMailer{}, Retriever: &fakeRetriever{}}
	list := s.FunctionTools()
	require.Len(t, list, 4)
	for _, name := range []string{NameCreatePDF, NameSearchGoogle, NameSendMail, NameCaseStudyRAG} {
		ft := findTool(t, list, name)
		assert.NotEmpty(t, ft.Description)
		assert.Equal(t, "object", ft.ParamsJSONSchema["type"])
	}
}

func TestFunctionTools_InvokeDecodesArguments(t *testing.T) {
	fs := &fakeSearcher{res: search.Result{Results: []map[string]any{{"title": "t"}}}}
	fm := &fakeMailer{}
	s := &Set{Searcher: fs, Mailer: fm, Renderer: &fakeRenderer{}}
	list := s.FunctionTools()

	out, err := findTool(t, list, NameSearchGoogle).OnInvokeTool(context.Background(), `{"query":"ev market","n_results":2}`)
	require.NoError(t, err)
	assert.Equal(t, "ev market", fs.query)
	assert.Equal(t, 2, fs.n)
	assert.Len(t, out.(search.Result).Results, 1)

	out, err = findTool(t, list, NameSendMail).OnInvokeTool(context.Background(), `{"recipient":"x@y.z","subject":"s","body":"b"}`)
	require.NoError(t, err)
	assert.Equal(t, mail.Message{Recipient: "x@y.z", Subject: "s", Body: "b"}, fm.got)
	assert.Equal(t, domain.StatusEmailSent, out.(domain.ToolStatus).Status)

	fr := &fakeRenderer{}
	s.Renderer = fr
	out, err = findTool(t, s.FunctionTools(), NameCreatePDF).OnInvokeTool(context.Background(), `{"title":"T","content":"C"}`)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPDFGenerated, out.(CreatePDFOutput).Status)
	assert.Equal(t, domain.DocumentRequest{Title: "T", Content: "C"}, domain.DocumentRequest{Title: fr.title, Content: fr.content})

	_, err = findTool(t, list, NameSearchGoogle).OnInvokeTool(context.Background(), `not json`)
	assert.Error(t, err)
}

func TestFunctionTools_RenderErrorPropagates(t *testing.T) {
	s := &Set{Renderer: &fakeRenderer{err: domain.ErrRender}}
	_, err := findTool(t, s.FunctionTools(), NameCreatePDF).OnInvokeTool(context.Background(), `{"title":"T","content":"C"}`)
	assert.ErrorIs(t, err, domain.ErrRender)
}

func TestFunctionTools_OnlyCreatePDFEndsTheRun(t *testing.T) {
	s := &Set{Renderer: &fakeRenderer{}, Searcher: &fakeSearcher{}, Mailer: &fakeMailer{}, Retriever: &fakeRetriever{}}
	list := s.FunctionTools()

	pdf := findTool(t, list, NameCreatePDF)
	require.NotNil(t, pdf.FailureErrorFunction, "create_pdf must override the default error handler")
	assert.Nil(t, *pdf.FailureErrorFunction, "a nil handler returns the error to the caller")

	for _, name := range []string{NameSearchGoogle, NameSendMail, NameCaseStudyRAG} {
		assert.Nil(t, findTool(t, list, name).FailureErrorFunction, name)
	}
}
