// Package dashboard holds the news collection, the favorites set, and the
// per-item analysis lifecycle. The visible list is always a pure function
// of (collection, filter criteria, favorites); nothing here persists
// across process restarts.
package dashboard

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/newspulse-ai/newspulse/internal/newsfeed"
	"github.com/newspulse-ai/newspulse/pkg/models"
)

// CategoryAll selects every category tab.
const CategoryAll = "all"

// ErrItemNotFound is returned when an item ID is not in the collection.
var ErrItemNotFound = errors.New("dashboard: news item not found")

// FilterCriteria are the four independent predicates applied to the
// collection. All four are ANDed; there is no OR mode.
type FilterCriteria struct {
	Category      string `json:"category"`      // category tag, or "all"/"" for all
	HalalOnly     bool   `json:"halalOnly"`     // require the compliance flag
	FavoritesOnly bool   `json:"favoritesOnly"` // require ticker in favorites
	Query         string `json:"query"`         // case-insensitive substring
}

// Matches reports whether item passes every predicate.
func (f FilterCriteria) Matches(item models.NewsItem, favorites map[string]bool) bool {
	if f.Category != "" && f.Category != CategoryAll && string(item.Category) != f.Category {
		return false
	}
	if f.HalalOnly && !item.IsHalal {
		return false
	}
	if f.FavoritesOnly && !favorites[item.Ticker] {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		company := strings.ToLower(item.Company)
		ticker := strings.ToLower(item.Ticker)
		if !strings.Contains(company, q) && !strings.Contains(ticker, q) {
			return false
		}
	}
	return true
}

// Filter returns the visible subset of items for the given criteria and
// favorites set. Pure: the inputs are never mutated.
func Filter(items []models.NewsItem, criteria FilterCriteria, favorites map[string]bool) []models.NewsItem {
	visible := make([]models.NewsItem, 0, len(items))
	for _, item := range items {
		if criteria.Matches(item, favorites) {
			visible = append(visible, item)
		}
	}
	return visible
}

// Stats are the headline tallies shown above the feed, derived from the
// filtered list and recomputed whenever filters or the collection change.
type Stats struct {
	Total   int `json:"total"`
	Bullish int `json:"bullish"`
	Bearish int `json:"bearish"`
}

// ComputeStats mirrors the dashboard's indicative tallies: a fixed 60/40
// split of the visible count. The tallies are not aggregated from
// completed analyses.
func ComputeStats(visible []models.NewsItem) Stats {
	n := len(visible)
	return Stats{
		Total:   n,
		Bullish: int(math.Round(float64(n) * 0.6)),
		Bearish: int(math.Round(float64(n) * 0.4)),
	}
}

// Controller owns the news collection, filter criteria, favorites, and
// one Card per item. All mutations happen through its methods; it is safe
// for concurrent use by HTTP handlers.
type Controller struct {
	mu        sync.RWMutex
	source    newsfeed.Source
	analyze   AnalyzeFunc
	items     []models.NewsItem
	cards     map[string]*Card // keyed by item ID
	favorites map[string]bool  // keyed by ticker
	criteria  FilterCriteria
	onResult  func(item models.NewsItem, snap Snapshot)
}

// NewController creates a controller over the given news source. Call
// Refresh to load the initial collection.
func NewController(source newsfeed.Source, analyze AnalyzeFunc) *Controller {
	return &Controller{
		source:    source,
		analyze:   analyze,
		cards:     make(map[string]*Card),
		favorites: make(map[string]bool),
		criteria:  FilterCriteria{Category: CategoryAll},
	}
}

// SetOnResult registers a hook invoked after each completed analysis
// request (success or failure). Used to broadcast dashboard events.
func (d *Controller) SetOnResult(fn func(item models.NewsItem, snap Snapshot)) {
	d.mu.Lock()
	d.onResult = fn
	d.mu.Unlock()
}

// Refresh replaces the collection from the news source. Favorites and the
// analysis state of items whose IDs persist across the refresh are left
// untouched; cards for vanished IDs are discarded.
func (d *Controller) Refresh(ctx context.Context) error {
	items, err := d.source.Fetch(ctx)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.items = items

	keep := make(map[string]bool, len(items))
	for _, item := range items {
		keep[item.ID] = true
	}
	for id := range d.cards {
		if !keep[id] {
			delete(d.cards, id)
		}
	}
	return nil
}

// SetFilters replaces the active filter criteria.
func (d *Controller) SetFilters(criteria FilterCriteria) {
	d.mu.Lock()
	d.criteria = criteria
	d.mu.Unlock()
}

// Filters returns the active filter criteria.
func (d *Controller) Filters() FilterCriteria {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.criteria
}

// Items returns the full collection.
func (d *Controller) Items() []models.NewsItem {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]models.NewsItem(nil), d.items...)
}

// Item looks up a single item by ID.
func (d *Controller) Item(id string) (models.NewsItem, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, item := range d.items {
		if item.ID == id {
			return item, true
		}
	}
	return models.NewsItem{}, false
}

// Visible derives the filtered view from the active criteria.
func (d *Controller) Visible() []models.NewsItem {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Filter(d.items, d.criteria, d.favorites)
}

// VisibleWith derives the filtered view for explicit criteria without
// touching the stored ones.
func (d *Controller) VisibleWith(criteria FilterCriteria) []models.NewsItem {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Filter(d.items, criteria, d.favorites)
}

// Stats returns the tallies for the current visible list.
func (d *Controller) Stats() Stats {
	return ComputeStats(d.Visible())
}

// ToggleFavorite adds the ticker to the favorites set if absent, else
// removes it. Returns the new membership.
func (d *Controller) ToggleFavorite(ticker string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.favorites[ticker] {
		delete(d.favorites, ticker)
		return false
	}
	d.favorites[ticker] = true
	return true
}

// IsFavorite reports ticker membership in the favorites set.
func (d *Controller) IsFavorite(ticker string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.favorites[ticker]
}

// Favorites returns the favorite tickers, sorted for stable output.
func (d *Controller) Favorites() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	tickers := make([]string, 0, len(d.favorites))
	for t := range d.favorites {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	return tickers
}

// Expand expands the item's card, issuing its analysis request if this is
// the first expansion. Blocks until the request completes.
func (d *Controller) Expand(ctx context.Context, id string) (Snapshot, error) {
	card, err := d.card(id)
	if err != nil {
		return Snapshot{}, err
	}
	snap, issued := card.Expand(ctx)
	d.notify(card, snap, issued)
	return snap, nil
}

// Retry re-issues a failed item's analysis request.
func (d *Controller) Retry(ctx context.Context, id string) (Snapshot, error) {
	card, err := d.card(id)
	if err != nil {
		return Snapshot{}, err
	}
	snap, issued := card.Retry(ctx)
	d.notify(card, snap, issued)
	return snap, nil
}

// Collapse collapses the item's card without discarding fetched state.
func (d *Controller) Collapse(id string) (Snapshot, error) {
	card, err := d.card(id)
	if err != nil {
		return Snapshot{}, err
	}
	return card.Collapse(), nil
}

// CardState returns the item's current analysis snapshot.
func (d *Controller) CardState(id string) (Snapshot, error) {
	card, err := d.card(id)
	if err != nil {
		return Snapshot{}, err
	}
	return card.Snapshot(), nil
}

// card returns the item's card, creating it lazily on first use.
func (d *Controller) card(id string) (*Card, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if card, ok := d.cards[id]; ok {
		return card, nil
	}
	for _, item := range d.items {
		if item.ID == id {
			card := NewCard(item, d.analyze)
			d.cards[id] = card
			return card, nil
		}
	}
	return nil, ErrItemNotFound
}

func (d *Controller) notify(card *Card, snap Snapshot, issued bool) {
	if !issued {
		return
	}
	d.mu.RLock()
	fn := d.onResult
	d.mu.RUnlock()
	if fn != nil {
		fn(card.Item(), snap)
	}
}
