// Package seed populates the database with demo data for development and
// testing. All generated users share the password "password123".
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"solcast/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers     int
	NumStreamers int
	ShouldClean  bool
	// SkipBcrypt stores a plaintext password instead of hashing. Much faster
	// for large seeds; dev only.
	SkipBcrypt bool
}

// Seed populates the database with test data.
func Seed(db *gorm.DB, opts Options) error {
	log.Printf("Seeding %d users (%d streamers)...", opts.NumUsers, opts.NumStreamers)

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Println("Warning: could not clear all existing data, continuing anyway...")
		}
	}

	f := NewFactory(db, opts)

	users, err := f.CreateUsers(opts.NumUsers)
	if err != nil {
		return fmt.Errorf("failed to create users: %w", err)
	}
	log.Printf("created %d users", len(users))

	streamers := users
	if opts.NumStreamers < len(streamers) {
		streamers = streamers[:opts.NumStreamers]
	}
	streams, err := f.CreateStreams(streamers)
	if err != nil {
		return fmt.Errorf("failed to create streams: %w", err)
	}
	log.Printf("created %d streams", len(streams))

	follows, err := f.CreateFollowMesh(users, streamers)
	if err != nil {
		return fmt.Errorf("failed to create follows: %w", err)
	}
	log.Printf("created %d follow edges", follows)

	messages, err := f.CreateChatHistory(streams, users)
	if err != nil {
		return fmt.Errorf("failed to create chat history: %w", err)
	}
	log.Printf("created %d chat messages", messages)

	gifts, err := f.CreateGiftLedger(users, streamers)
	if err != nil {
		return fmt.Errorf("failed to create gift ledger: %w", err)
	}
	log.Printf("created %d gift transactions", gifts)

	return nil
}

func clearData(db *gorm.DB) error {
	tables := []any{
		&models.SolcitoTransaction{},
		&models.ChatMessage{},
		&models.ChatSettings{},
		&models.Block{},
		&models.Follow{},
		&models.Stream{},
		&models.User{},
	}
	for _, table := range tables {
		if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(table).Error; err != nil {
			return err
		}
	}
	return nil
}

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	return &Factory{
		db:   db,
		opts: opts,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// streamTitles mixes category-keyword titles with just-chatting ones so the
// seeded catalog produces a believable top-categories rail.
var streamTitles = []string{
	"VALORANT ranked hasta radiante",
	"valorant con subs, gifteos activados",
	"LOL clash con el team",
	"league of legends aram infinito",
	"Minecraft hardcore dia 100",
	"minecraft speedrun any%",
	"FORTNITE arena duos",
	"GTA roleplay: nueva ciudad",
	"warzone con los panas",
	"FIFA ultimate team road to glory",
	"fc24 division rivals",
	"apex ranked grind",
	"cs2 faceit lvl 10",
	"dota 2 immortal draft",
	"charlando y react a videos",
	"IRL paseo por el centro",
	"cocinando milanesas en vivo",
	"mates y charla con el chat",
}

// CreateUsers constructs and persists count sample users.
func (f *Factory) CreateUsers(count int) ([]*models.User, error) {
	password := "password123"
	if !f.opts.SkipBcrypt {
		hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		password = string(hashed)
	}

	users := make([]*models.User, 0, count)
	for i := 0; i < count; i++ {
		user := &models.User{
			Username:       fmt.Sprintf("%s%d", gofakeit.Username(), gofakeit.Number(10, 99)),
			Email:          gofakeit.Email(),
			Password:       password,
			Bio:            gofakeit.Sentence(8),
			AvatarURL:      fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
			ShowSponsors:   true,
			IsPrime:        f.rng.Intn(5) == 0,
			SolcitoBalance: int64(f.rng.Intn(5000)),
		}
		if len(user.Username) > 20 {
			user.Username = user.Username[:20]
		}
		if err := f.db.Create(user).Error; err != nil {
			// Username collisions happen with truncation; skip and move on.
			continue
		}
		users = append(users, user)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("no users could be created")
	}
	return users, nil
}

// CreateStreams turns the given users into streamers, each with one stream.
func (f *Factory) CreateStreams(owners []*models.User) ([]*models.Stream, error) {
	streams := make([]*models.Stream, 0, len(owners))
	for _, owner := range owners {
		updates := map[string]any{
			"is_streamer": true,
			"stream_key":  gofakeit.UUID(),
			"server_url":  "rtmp://ingest.solcast.local/live",
		}
		if err := f.db.Model(owner).Updates(updates).Error; err != nil {
			return nil, err
		}

		stream := &models.Stream{
			UserID:       owner.ID,
			Title:        streamTitles[f.rng.Intn(len(streamTitles))],
			ThumbnailURL: fmt.Sprintf("https://picsum.photos/seed/%s/640/360", gofakeit.UUID()),
			AvgViewers:   float64(f.rng.Intn(800)),
			PeakViewers:  f.rng.Intn(3000),
			TotalHours:   float64(f.rng.Intn(500)),
		}
		if err := f.db.Create(stream).Error; err != nil {
			return nil, err
		}
		streams = append(streams, stream)
	}
	return streams, nil
}

// CreateFollowMesh makes every user follow a random subset of the streamers.
func (f *Factory) CreateFollowMesh(users, streamers []*models.User) (int, error) {
	created := 0
	for _, u := range users {
		for _, s := range streamers {
			if u.ID == s.ID || f.rng.Intn(3) != 0 {
				continue
			}
			follow := &models.Follow{FollowerID: u.ID, FollowingID: s.ID}
			if err := f.db.Create(follow).Error; err != nil {
				return created, err
			}
			created++
		}
	}
	return created, nil
}

// CreateChatHistory fills each stream's chat with a handful of messages
// spread over the last hour.
func (f *Factory) CreateChatHistory(streams []*models.Stream, users []*models.User) (int, error) {
	created := 0
	for _, stream := range streams {
		n := 5 + f.rng.Intn(20)
		for i := 0; i < n; i++ {
			sender := users[f.rng.Intn(len(users))]
			msg := &models.ChatMessage{
				StreamID:  stream.ID,
				UserID:    sender.ID,
				Username:  sender.Username,
				AvatarURL: sender.AvatarURL,
				Text:      gofakeit.Sentence(3 + f.rng.Intn(8)),
				CreatedAt: time.Now().Add(-time.Duration(f.rng.Intn(3600)) * time.Second),
			}
			if err := f.db.Create(msg).Error; err != nil {
				return created, err
			}
			created++
		}
	}
	return created, nil
}

// CreateGiftLedger records a few historic gifts from viewers to streamers.
// Balances are not adjusted; the seeded balances already account for them.
func (f *Factory) CreateGiftLedger(users, streamers []*models.User) (int, error) {
	if len(streamers) == 0 {
		return 0, nil
	}
	created := 0
	for _, u := range users {
		if f.rng.Intn(2) != 0 {
			continue
		}
		receiver := streamers[f.rng.Intn(len(streamers))]
		if receiver.ID == u.ID {
			continue
		}
		tx := &models.SolcitoTransaction{
			SenderID:   u.ID,
			ReceiverID: receiver.ID,
			Amount:     int64((f.rng.Intn(10) + 1) * 50),
			Type:       models.TransactionTypeGift,
			CreatedAt:  time.Now().Add(-time.Duration(f.rng.Intn(72)) * time.Hour),
		}
		if err := f.db.Create(tx).Error; err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
