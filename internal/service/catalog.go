// Package service contains the business logic orchestrating repositories and
// external collaborators.
package service

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"solcast/internal/cache"
	"solcast/internal/livekit"
	"solcast/internal/models"
	"solcast/internal/observability"
	"solcast/internal/repository"
)

const (
	// feedPageSize caps every feed section.
	feedPageSize = 10
	// categorySampleSize is how many live streams feed the category tally.
	categorySampleSize = 20
	// topCategoryCount is how many categories the tally keeps.
	topCategoryCount = 5
	// baseViewerCount pads every live stream's viewer figure.
	baseViewerCount = 1250
)

// RoomDirectory is the slice of the media server client the catalog needs.
type RoomDirectory interface {
	ListActiveRooms(ctx context.Context) ([]livekit.Room, error)
}

// FeedSection is one section of the catalog. Err is non-nil when the section
// could not be built; an empty Streams slice with a nil Err genuinely means
// nothing is live for this section. Callers must not conflate the two.
type FeedSection struct {
	Streams []models.LiveStream `json:"streams"`
	Err     error               `json:"-"`
}

// CatalogService builds viewer-facing live stream feeds by joining the media
// server's active-room directory against stored stream metadata.
type CatalogService struct {
	rooms   RoomDirectory
	streams repository.StreamRepository
	follows repository.FollowRepository
	blocks  repository.BlockRepository
}

// NewCatalogService returns a CatalogService over the given collaborators.
func NewCatalogService(rooms RoomDirectory, streams repository.StreamRepository, follows repository.FollowRepository, blocks repository.BlockRepository) *CatalogService {
	return &CatalogService{rooms: rooms, streams: streams, follows: follows, blocks: blocks}
}

// activeRooms returns the media server's room directory, served from a
// short-lived cache so a burst of catalog requests does not hammer it.
func (s *CatalogService) activeRooms(ctx context.Context) ([]livekit.Room, error) {
	var rooms []livekit.Room
	if found, _ := cache.GetJSON(ctx, cache.ActiveRoomsKey, &rooms); found {
		return rooms, nil
	}

	rooms, err := s.rooms.ListActiveRooms(ctx)
	if err != nil {
		observability.RoomDirectoryCalls.WithLabelValues("error").Inc()
		return nil, err
	}
	observability.RoomDirectoryCalls.WithLabelValues("ok").Inc()
	_ = cache.SetJSON(ctx, cache.ActiveRoomsKey, rooms, cache.ActiveRoomsTTL)
	return rooms, nil
}

// liveEntries resolves the active-room directory into feed entries ordered by
// most recently updated stream first. Room names carry the owner's user ID;
// rooms with unparseable names or no stored stream are skipped.
func (s *CatalogService) liveEntries(ctx context.Context) ([]models.LiveStream, error) {
	rooms, err := s.activeRooms(ctx)
	if err != nil {
		return nil, err
	}

	participants := make(map[uint]int, len(rooms))
	userIDs := make([]uint, 0, len(rooms))
	for _, room := range rooms {
		id, err := strconv.ParseUint(room.Name, 10, 32)
		if err != nil {
			continue
		}
		userIDs = append(userIDs, uint(id))
		participants[uint(id)] = room.NumParticipants
	}

	streams, err := s.streams.GetStreamsByUserIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	entries := make([]models.LiveStream, 0, len(streams))
	for _, st := range streams {
		entries = append(entries, models.LiveStream{
			ID:           st.ID,
			Title:        st.Title,
			ThumbnailURL: st.ThumbnailURL,
			IsLive:       true,
			ViewerCount:  participants[st.UserID] + baseViewerCount,
			User: models.StreamUser{
				ID:        st.User.ID,
				Username:  st.User.Username,
				AvatarURL: st.User.AvatarURL,
			},
			UpdatedAt: st.UpdatedAt,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].UpdatedAt.After(entries[j].UpdatedAt)
	})
	return entries, nil
}

func page(entries []models.LiveStream) []models.LiveStream {
	if len(entries) > feedPageSize {
		entries = entries[:feedPageSize]
	}
	return entries
}

// excludeOwners drops entries whose owner appears in any of the ID lists.
func excludeOwners(entries []models.LiveStream, idLists ...[]uint) []models.LiveStream {
	excluded := make(map[uint]struct{})
	for _, ids := range idLists {
		for _, id := range ids {
			excluded[id] = struct{}{}
		}
	}
	if len(excluded) == 0 {
		return entries
	}

	kept := make([]models.LiveStream, 0, len(entries))
	for _, e := range entries {
		if _, ok := excluded[e.User.ID]; !ok {
			kept = append(kept, e)
		}
	}
	return kept
}

// LiveStreams is the main feed: every live stream, newest first. A signed-in
// viewer never sees creators who blocked them; viewerID 0 is anonymous and
// gets the unfiltered feed.
func (s *CatalogService) LiveStreams(ctx context.Context, viewerID uint) FeedSection {
	defer observability.TrackCatalogSection("all")()

	entries, err := s.liveEntries(ctx)
	if err != nil {
		return FeedSection{Err: err}
	}

	if viewerID != 0 {
		blockerIDs, err := s.blocks.BlockerIDsOf(ctx, viewerID)
		if err != nil {
			return FeedSection{Err: err}
		}
		entries = excludeOwners(entries, blockerIDs)
	}
	return FeedSection{Streams: page(entries)}
}

// LiveFollowing is the "channels you follow" section for the given viewer.
func (s *CatalogService) LiveFollowing(ctx context.Context, viewerID uint) FeedSection {
	defer observability.TrackCatalogSection("following")()

	entries, err := s.liveEntries(ctx)
	if err != nil {
		return FeedSection{Err: err}
	}

	followingIDs, err := s.follows.FollowingIDs(ctx, viewerID)
	if err != nil {
		return FeedSection{Err: err}
	}
	followed := make(map[uint]struct{}, len(followingIDs))
	for _, id := range followingIDs {
		followed[id] = struct{}{}
	}

	section := make([]models.LiveStream, 0, feedPageSize)
	for _, e := range entries {
		if _, ok := followed[e.User.ID]; ok {
			section = append(section, e)
		}
	}
	return FeedSection{Streams: page(section)}
}

// LiveNotFollowed is the discovery section for the given viewer: live streams
// the viewer does not follow, excluding their own stream and every stream
// with a block on either side of the pair.
func (s *CatalogService) LiveNotFollowed(ctx context.Context, viewerID uint) FeedSection {
	defer observability.TrackCatalogSection("discover")()

	entries, err := s.liveEntries(ctx)
	if err != nil {
		return FeedSection{Err: err}
	}

	followingIDs, err := s.follows.FollowingIDs(ctx, viewerID)
	if err != nil {
		return FeedSection{Err: err}
	}
	blockerIDs, err := s.blocks.BlockerIDsOf(ctx, viewerID)
	if err != nil {
		return FeedSection{Err: err}
	}
	blockedIDs, err := s.blocks.BlockedIDs(ctx, viewerID)
	if err != nil {
		return FeedSection{Err: err}
	}

	section := excludeOwners(entries, followingIDs, blockerIDs, blockedIDs, []uint{viewerID})
	return FeedSection{Streams: page(section)}
}

// categoryRule maps title keywords to a category. Rules are checked in order;
// the first match wins.
type categoryRule struct {
	keywords []string
	name     string
}

var categoryRules = []categoryRule{
	{[]string{"valorant"}, "Valorant"},
	{[]string{"lol", "league"}, "League of Legends"},
	{[]string{"minecraft"}, "Minecraft"},
	{[]string{"fortnite"}, "Fortnite"},
	{[]string{"gta", "roleplay"}, "GTA V"},
	{[]string{"cod", "warzone"}, "Call of Duty"},
	{[]string{"fifa", "fc24"}, "EA Sports FC"},
	{[]string{"apex"}, "Apex Legends"},
	{[]string{"cs", "counter"}, "Counter-Strike"},
	{[]string{"dota"}, "Dota 2"},
}

// defaultCategory is used when no keyword matches.
const defaultCategory = "IRL"

// ClassifyTitle derives a category from a stream title. The mapping is
// deterministic: same title, same category.
func ClassifyTitle(title string) string {
	lower := strings.ToLower(title)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.name
			}
		}
	}
	return defaultCategory
}

// TopCategories tallies categories over a sample of current live streams and
// returns the biggest ones by stream count. The tally is cached briefly; a
// title change invalidates it.
func (s *CatalogService) TopCategories(ctx context.Context) ([]models.Category, error) {
	defer observability.TrackCatalogSection("categories")()

	var categories []models.Category
	err := cache.CacheAside(ctx, cache.CategoriesKey, &categories, cache.CategoriesTTL, func() error {
		var ferr error
		categories, ferr = s.tallyCategories(ctx)
		return ferr
	})
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *CatalogService) tallyCategories(ctx context.Context) ([]models.Category, error) {
	entries, err := s.liveEntries(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) > categorySampleSize {
		entries = entries[:categorySampleSize]
	}

	type tally struct {
		viewers      int
		count        int
		thumbnailURL string
	}
	tallies := make(map[string]*tally)
	order := make([]string, 0)

	for _, e := range entries {
		name := ClassifyTitle(e.Title)
		tl, ok := tallies[name]
		if !ok {
			tl = &tally{thumbnailURL: e.ThumbnailURL}
			tallies[name] = tl
			order = append(order, name)
		}
		tl.count++
		tl.viewers += baseViewerCount
	}

	categories := make([]models.Category, 0, len(order))
	for _, name := range order {
		tl := tallies[name]
		categories = append(categories, models.Category{
			Name:         name,
			ThumbnailURL: tl.thumbnailURL,
			ViewerCount:  tl.viewers,
			StreamCount:  tl.count,
		})
	}

	sort.SliceStable(categories, func(i, j int) bool {
		return categories[i].StreamCount > categories[j].StreamCount
	})
	if len(categories) > topCategoryCount {
		categories = categories[:topCategoryCount]
	}
	return categories, nil
}

// StreamsByCategory returns the live streams whose title classifies into the
// given category, newest first.
func (s *CatalogService) StreamsByCategory(ctx context.Context, category string) ([]models.LiveStream, error) {
	entries, err := s.liveEntries(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]models.LiveStream, 0)
	for _, e := range entries {
		if strings.EqualFold(ClassifyTitle(e.Title), category) {
			matched = append(matched, e)
		}
	}
	return matched, nil
}
