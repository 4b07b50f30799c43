package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
	"google.golang.org/genai"

	"lyricsd/cache"
	"lyricsd/config"
	"lyricsd/models"
	"lyricsd/schema"
)

const (
	lyricsToolName = "get_lyrics"
	maxToolRounds  = 3
)

var ErrTooManyToolRounds = errors.New("agent exceeded tool call rounds")

const systemPrompt = `You are a music assistant inside a content-browsing app.
When the user asks about the words of a song, call get_lyrics with the song title and, if known, the artist.
Quote at most a few lines of lyrics and summarize the rest. If lyrics come back empty, say so plainly and
suggest the user paste the lyrics or open the source link if one is provided.
Keep answers short and use markdown.`

// LyricsResolver is the part of lyrics.Resolver the agent needs.
type LyricsResolver interface {
	Resolve(ctx context.Context, title, artist string, store *cache.Cache) models.LyricsRecord
}

type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Agent forwards chat messages to Gemini and answers its get_lyrics tool calls.
type Agent struct {
	models   generator
	model    string
	resolver LyricsResolver
	cache    *cache.Cache
}

// Reply is the agent's answer plus every record fetched while producing it.
type Reply struct {
	Text    string                `json:"reply"`
	Records []models.LyricsRecord `json:"records"`
}

type lyricsArgs struct {
	Title  string `validate:"required"`
	Artist string
}

func New(ctx context.Context, cfg config.GeminiConfig, resolver LyricsResolver, store *cache.Cache) (*Agent, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Agent{
		models:   client.Models,
		model:    cfg.Model,
		resolver: resolver,
		cache:    store,
	}, nil
}

func lyricsTool() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{{
			Name:        lyricsToolName,
			Description: "Look up the lyrics of a song. Returns title, artist, lyrics text, an optional source link and an error if nothing was found.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"title": {
						Type:        genai.TypeString,
						Description: "Song title",
					},
					"artist": {
						Type:        genai.TypeString,
						Description: "Performing artist, if known",
					},
				},
				Required: []string{"title"},
			},
		}},
	}
}

// Chat sends message to the model and resolves tool calls until it answers in text.
func (a *Agent) Chat(ctx context.Context, message string) (Reply, error) {
	logger := log.WithFields(log.Fields{"module": "agent"})

	span := sentry.StartSpan(ctx, "agent.chat")
	span.Description = "Chat with the lyrics agent"
	defer span.Finish()
	ctx = span.Context()

	contents := []*genai.Content{genai.NewContentFromText(message, genai.RoleUser)}
	genConfig := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Tools:             []*genai.Tool{lyricsTool()},
	}

	reply := Reply{Records: []models.LyricsRecord{}}
	for round := 0; ; round++ {
		resp, err := a.models.GenerateContent(ctx, a.model, contents, genConfig)
		if err != nil {
			span.Status = sentry.SpanStatusInternalError
			return Reply{}, fmt.Errorf("generate content: %w", err)
		}

		calls := resp.FunctionCalls()
		if len(calls) == 0 {
			reply.Text = strings.TrimSpace(resp.Text())
			span.Status = sentry.SpanStatusOK
			return reply, nil
		}
		if round == maxToolRounds {
			logger.Warnf("model still calling tools after %d rounds", maxToolRounds)
			span.Status = sentry.SpanStatusResourceExhausted
			return reply, ErrTooManyToolRounds
		}

		logger.Debugf("round %d: %d tool call(s)", round, len(calls))
		if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
			contents = append(contents, resp.Candidates[0].Content)
		}

		parts := make([]*genai.Part, 0, len(calls))
		for _, call := range calls {
			response, record := a.callTool(ctx, call)
			if record != nil {
				reply.Records = append(reply.Records, *record)
			}
			parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       call.ID,
				Name:     call.Name,
				Response: response,
			}})
		}
		contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
	}
}

// callTool answers one function call. Bad calls get an error payload the model can read.
func (a *Agent) callTool(ctx context.Context, call *genai.FunctionCall) (map[string]any, *models.LyricsRecord) {
	if call.Name != lyricsToolName {
		return map[string]any{"error": fmt.Sprintf("unknown tool %q", call.Name)}, nil
	}

	args := lyricsArgs{}
	args.Title, _ = call.Args["title"].(string)
	args.Artist, _ = call.Args["artist"].(string)
	if err := schema.Check(args); err != nil {
		return map[string]any{"error": "title is required"}, nil
	}

	record := a.resolver.Resolve(ctx, args.Title, args.Artist, a.cache)
	return recordPayload(record), &record
}

func recordPayload(r models.LyricsRecord) map[string]any {
	payload := map[string]any{
		"title":  r.Title,
		"artist": r.Artist,
		"lyrics": r.Lyrics,
	}
	if r.SourceURL != "" {
		payload["sourceUrl"] = r.SourceURL
	}
	if r.Message != "" {
		payload["message"] = r.Message
	}
	if r.Error != "" {
		payload["error"] = r.Error
	}
	return payload
}
