package animal

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Default endpoints for the six media actions. Overridable per Fetcher
// so tests can point them at a local server.
const (
	defaultDogPhotoURL  = "https://random.dog/woof.json"
	defaultDogFactURL   = "https://dogapi.dog/api/v2/facts?limit=1"
	defaultCatFactURL   = "https://meowfacts.herokuapp.com/"
	defaultCatPhotoURL  = "https://api.thecatapi.com/v1/images/search"
	defaultFoxPhotoURL  = "https://randomfox.ca/floof/"
	defaultDuckPhotoURL = "https://random-d.uk/api/v2/random"
)

const defaultPhotoRetries = 6

// imageExtensions is the allowlist used to reject non-image URLs.
var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// Fetcher talks to the public animal APIs and extracts the single field
// each response carries.
type Fetcher struct {
	client       *http.Client
	logger       *slog.Logger
	photoRetries int

	DogPhotoURL  string
	DogFactURL   string
	CatFactURL   string
	CatPhotoURL  string
	FoxPhotoURL  string
	DuckPhotoURL string
}

func NewFetcher(timeout time.Duration, photoRetries int, logger *slog.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if photoRetries <= 0 {
		photoRetries = defaultPhotoRetries
	}
	return &Fetcher{
		client:       &http.Client{Timeout: timeout},
		logger:       logger,
		photoRetries: photoRetries,
		DogPhotoURL:  defaultDogPhotoURL,
		DogFactURL:   defaultDogFactURL,
		CatFactURL:   defaultCatFactURL,
		CatPhotoURL:  defaultCatPhotoURL,
		FoxPhotoURL:  defaultFoxPhotoURL,
		DuckPhotoURL: defaultDuckPhotoURL,
	}
}

func (f *Fetcher) getJSON(url string, out any) error {
	resp, err := f.client.Get(url)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read %s: %w", url, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

func isImageURL(url string) bool {
	if url == "" {
		return false
	}
	lower := strings.ToLower(url)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// DogPhoto fetches a random dog picture. The backing source mixes in
// video URLs, so it retries until an allowlisted image extension comes
// up; exhausting the retries yields an apologetic text result.
func (f *Fetcher) DogPhoto() (*Result, error) {
	var lastErr error
	for i := 0; i < f.photoRetries; i++ {
		var payload struct {
			URL string `json:"url"`
		}
		if err := f.getJSON(f.DogPhotoURL, &payload); err != nil {
			lastErr = err
			continue
		}
		candidate := strings.TrimSpace(payload.URL)
		if isImageURL(candidate) {
			return &Result{Type: MediaImage, Animal: AnimalDog, ImageURL: candidate}, nil
		}
		f.logger.Debug("dog photo candidate rejected", "url", candidate, "attempt", i+1)
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return &Result{
		Type:   MediaText,
		Animal: AnimalDog,
		Text:   "Şu an uygun köpek fotoğrafı bulunamadı, tekrar dener misin?",
	}, nil
}

// DogFact extracts data[0].attributes.body.
func (f *Fetcher) DogFact() (*Result, error) {
	var payload struct {
		Data []struct {
			Attributes struct {
				Body string `json:"body"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := f.getJSON(f.DogFactURL, &payload); err != nil {
		return nil, err
	}
	fact := ""
	if len(payload.Data) > 0 {
		fact = strings.TrimSpace(payload.Data[0].Attributes.Body)
	}
	return &Result{Type: MediaText, Animal: AnimalDog, Text: fact}, nil
}

// CatFact extracts data[0].
func (f *Fetcher) CatFact() (*Result, error) {
	var payload struct {
		Data []string `json:"data"`
	}
	if err := f.getJSON(f.CatFactURL, &payload); err != nil {
		return nil, err
	}
	fact := ""
	if len(payload.Data) > 0 {
		fact = strings.TrimSpace(payload.Data[0])
	}
	return &Result{Type: MediaText, Animal: AnimalCat, Text: fact}, nil
}

// CatPhoto extracts [0].url.
func (f *Fetcher) CatPhoto() (*Result, error) {
	var payload []struct {
		URL string `json:"url"`
	}
	if err := f.getJSON(f.CatPhotoURL, &payload); err != nil {
		return nil, err
	}
	url := ""
	if len(payload) > 0 {
		url = strings.TrimSpace(payload[0].URL)
	}
	return &Result{Type: MediaImage, Animal: AnimalCat, ImageURL: url}, nil
}

// FoxPhoto extracts .image.
func (f *Fetcher) FoxPhoto() (*Result, error) {
	var payload struct {
		Image string `json:"image"`
	}
	if err := f.getJSON(f.FoxPhotoURL, &payload); err != nil {
		return nil, err
	}
	return &Result{Type: MediaImage, Animal: AnimalFox, ImageURL: strings.TrimSpace(payload.Image)}, nil
}

// DuckPhoto extracts .url.
func (f *Fetcher) DuckPhoto() (*Result, error) {
	var payload struct {
		URL string `json:"url"`
	}
	if err := f.getJSON(f.DuckPhotoURL, &payload); err != nil {
		return nil, err
	}
	return &Result{Type: MediaImage, Animal: AnimalDuck, ImageURL: strings.TrimSpace(payload.URL)}, nil
}
