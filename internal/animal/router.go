// Package animal maps chat messages to one of six fixed media-fetch
// actions (dog/cat/fox/duck photo or fact) via function calling, with a
// keyword fallback when no model is reachable.
package animal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/config"
	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/domain"
	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/gateway"
	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/sanitize"
)

// Media kinds a fetch action can produce.
const (
	MediaImage = "image"
	MediaText  = "text"
)

// Canonical animal names carried in results.
const (
	AnimalDog  = "dog"
	AnimalCat  = "cat"
	AnimalFox  = "fox"
	AnimalDuck = "duck"
)

const systemPrompt = "Kullanıcının niyetini tespit et ve sadece açık HAYVAN isteği varsa uygun hayvan fonksiyonunu çağır. " +
	"Seçenekler: dog_photo, dog_facts, cat_facts, cat_photo, fox_photo, duck_photo. " +
	"Mesajda 'köpek/dog', 'kedi/cat', 'tilki/fox', 'ördek/duck' anahtar kelimeleri YOKSA kesinlikle fonksiyon çağırma. " +
	"PDF, ders, kitap, teori, Python, Anayasa, Clean Architecture gibi bilgi taleplerinde fonksiyon çağırma. " +
	"Net hayvan isteği yoksa FONKSİYON ÇAĞIRMA ve normal akışa bırak."

// animalKeywords pre-gates the flow: no keyword, no model call.
var animalKeywords = []string{"köpek", "dog", "kedi", "cat", "tilki", "fox", "ördek", "duck"}

var (
	photoKeywords = []string{"foto", "resim", "image", "photo"}
	factKeywords  = []string{"fact", "bilgi"}
)

var emojiByAnimal = map[string]string{
	AnimalDog:  "🐶",
	AnimalCat:  "🐱",
	AnimalFox:  "🦊",
	AnimalDuck: "🦆",
}

// Emoji returns the display emoji for a canonical animal name.
func Emoji(animal string) string {
	if e, ok := emojiByAnimal[animal]; ok {
		return e
	}
	return "🙂"
}

// Result is one resolved media action. Type is image or text; image
// results carry ImageURL, text results carry Text.
type Result struct {
	Type     string `json:"type"`
	Animal   string `json:"animal"`
	ImageURL string `json:"image_url,omitempty"`
	Text     string `json:"text,omitempty"`
}

// toolSpecs is the constrained action schema offered to the model. All
// six actions take no arguments.
func toolSpecs() []domain.ToolDefinition {
	specs := []struct{ name, desc string }{
		{"dog_photo", "Rastgele bir köpek fotoğrafı döndür"},
		{"dog_facts", "Rastgele bir köpek bilgisi döndür"},
		{"cat_facts", "Rastgele bir kedi bilgisi döndür"},
		{"cat_photo", "Rastgele bir kedi fotoğrafı döndür"},
		{"fox_photo", "Rastgele bir tilki fotoğrafı döndür"},
		{"duck_photo", "Rastgele bir ördek fotoğrafı döndür"},
	}
	out := make([]domain.ToolDefinition, len(specs))
	for i, s := range specs {
		out[i] = domain.ToolDefinition{
			Name:        s.name,
			Description: s.desc,
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
				"required":   []string{},
			},
		}
	}
	return out
}

// Router resolves animal-media requests.
type Router struct {
	gw        *gateway.Gateway
	sanitizer *sanitize.Sanitizer
	fetcher   *Fetcher
	logger    *slog.Logger
	tools     []domain.ToolDefinition
}

func New(cfg config.AnimalConfig, gw *gateway.Gateway, san *sanitize.Sanitizer, logger *slog.Logger) *Router {
	return &Router{
		gw:        gw,
		sanitizer: san,
		fetcher:   NewFetcher(time.Duration(cfg.HTTPTimeoutSeconds)*time.Second, cfg.PhotoRetries, logger),
		logger:    logger,
		tools:     toolSpecs(),
	}
}

// Route resolves the message to a media action and runs it. A nil Result
// means the message is not an animal request and the caller should fall
// through to another flow.
func (r *Router) Route(ctx context.Context, message string) (*Result, error) {
	clean, err := r.sanitizer.CleanSubFlow(message, sanitize.MaxAnimalLen)
	if err != nil {
		switch {
		case errors.Is(err, sanitize.ErrEmpty):
			return nil, nil
		case errors.Is(err, sanitize.ErrTooLong):
			return &Result{
				Type:   MediaText,
				Animal: "error",
				Text:   fmt.Sprintf("Mesaj çok uzun. Maksimum %d karakter olabilir.", sanitize.MaxAnimalLen),
			}, nil
		case errors.Is(err, sanitize.ErrBlocked):
			return &Result{Type: MediaText, Animal: "error", Text: "Güvenlik nedeniyle mesaj filtrelendi"}, nil
		default:
			return nil, err
		}
	}

	if !containsAny(strings.ToLower(clean), animalKeywords) {
		return nil, nil
	}

	resp, err := r.gw.CompleteWithTools(ctx, systemPrompt, clean, r.tools)
	if err != nil {
		r.logger.Warn("animal function calling failed, using keyword rules", "error", err)
		return r.routeByKeywords(clean)
	}
	if !resp.HasToolCalls() {
		return nil, nil
	}

	name := resp.ToolCalls[0].Name
	action, ok := r.action(name)
	if !ok {
		r.logger.Warn("model picked unknown animal action", "name", name)
		return nil, nil
	}
	r.logger.Debug("animal action selected", "action", name)
	return action()
}

func (r *Router) action(name string) (func() (*Result, error), bool) {
	switch name {
	case "dog_photo":
		return r.fetcher.DogPhoto, true
	case "dog_facts":
		return r.fetcher.DogFact, true
	case "cat_facts":
		return r.fetcher.CatFact, true
	case "cat_photo":
		return r.fetcher.CatPhoto, true
	case "fox_photo":
		return r.fetcher.FoxPhoto, true
	case "duck_photo":
		return r.fetcher.DuckPhoto, true
	default:
		return nil, false
	}
}

// routeByKeywords is the no-model fallback: animal keyword plus a
// photo- or fact-intent keyword, first matching rule wins. Facts exist
// only for dogs and cats.
func (r *Router) routeByKeywords(message string) (*Result, error) {
	t := strings.ToLower(message)

	has := func(words ...string) bool { return containsAny(t, words) }
	wantsPhoto := has(photoKeywords...)
	wantsFact := has(factKeywords...)

	switch {
	case has("köpek", "dog") && wantsPhoto:
		return r.fetcher.DogPhoto()
	case has("köpek", "dog") && wantsFact:
		return r.fetcher.DogFact()
	case has("kedi", "cat") && wantsFact:
		return r.fetcher.CatFact()
	case has("kedi", "cat") && wantsPhoto:
		return r.fetcher.CatPhoto()
	case has("tilki", "fox") && wantsPhoto:
		return r.fetcher.FoxPhoto()
	case has("ördek", "duck") && wantsPhoto:
		return r.fetcher.DuckPhoto()
	default:
		return nil, nil
	}
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
