package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/crystaldolphin/pantrychef/internal/agent"
	"github.com/crystaldolphin/pantrychef/internal/schema"
	"github.com/crystaldolphin/pantrychef/internal/tools"
)

const statusSuccess = "success"

// maxBodyBytes caps request bodies; histories are small.
const maxBodyBytes = 4 << 20

type chatRequest struct {
	Context []schema.Message `json:"context"`
	Model   string           `json:"model"`
	Prompt  string           `json:"prompt,omitempty"`
	// Token is read only on WebSocket frames; HTTP callers use the
	// Authorization header.
	Token string `json:"token,omitempty"`
}

type chatResponse struct {
	Messages                 []schema.Message `json:"messages"`
	Recommendations          []schema.Recipe  `json:"recommendations"`
	Ingredients              []string         `json:"ingredients"`
	History                  []schema.Message `json:"history"`
	HasRecipeRecommendations bool             `json:"hasRecipeRecommendations"`
	Status                   string           `json:"status"`
}

type findRecipeRequest struct {
	Ingredients []string `json:"ingredients"`
	Tags        []string `json:"tags,omitempty"`
	Model       string   `json:"model,omitempty"`
}

type findRecipeResponse struct {
	Recipes []schema.Recipe `json:"recipes"`
	Status  string          `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Timeout())
	defer cancel()

	resp, err := s.chat(ctx, req, r.Header.Get("Authorization"))
	if err != nil {
		slog.Error("chat failed", "model", req.Model, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// chat runs one turn on a fresh Chef seeded with the windowed context.
func (s *Server) chat(ctx context.Context, req chatRequest, token string) (chatResponse, error) {
	settings := s.factory.Settings()
	history := agent.ContextWindow(req.Context, settings.ContextWindow, settings.MaxContextTokens, s.counter)

	chef, err := s.factory.GetChef(agent.ChefOptions{
		Name:           s.chefName,
		SpecifiedModel: req.Model,
		History:        history,
	})
	if err != nil {
		return chatResponse{}, err
	}

	chef.GetResponse(ctx, req.Prompt, token)
	if err := ctx.Err(); err != nil {
		return chatResponse{}, fmt.Errorf("chat turn: %w", err)
	}

	return chatResponse{
		Messages:                 nonNil(chef.LatestHistory()),
		Recommendations:          nonNil(chef.Recommendations()),
		Ingredients:              nonNil(chef.Ingredients()),
		History:                  schema.WithoutSystem(chef.History()),
		HasRecipeRecommendations: chef.HasRecipeRecommendations(),
		Status:                   statusSuccess,
	}, nil
}

func (s *Server) handleFindRecipe(w http.ResponseWriter, r *http.Request) {
	var req findRecipeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ingredients := tools.StringList(req.Ingredients)
	if len(ingredients) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("ingredients must be a non-empty list"))
		return
	}

	recipes, err := s.findRecipes(r.Context(), ingredients, req.Model)
	if err != nil {
		slog.Error("find recipes failed", "ingredients", ingredients, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]schema.Recipe, 0, len(recipes))
	for _, rec := range recipes {
		if rec.HasAllTags(req.Tags) {
			out = append(out, rec)
		}
	}
	writeJSON(w, http.StatusOK, findRecipeResponse{Recipes: out, Status: statusSuccess})
}

func (s *Server) findRecipes(ctx context.Context, ingredients []string, model string) ([]schema.Recipe, error) {
	searcher, err := s.factory.Searcher(model)
	if errors.Is(err, schema.ErrProviderNotConfigured) {
		searcher, err = nil, nil
	}
	if err != nil {
		return nil, err
	}
	return tools.NewFindRecipesTool(s.store, searcher).Find(ctx, ingredients)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
