package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/okian/lomba/internal/domain/model"
)

// Collection names used by MongoStore.
const (
	CompetitionsCollection = "competitions"
	TeamsCollection        = "teams"
	ScoresCollection       = "scores"
)

// MongoStore persists the collections in MongoDB.
type MongoStore struct {
	client  *mongo.Client
	timeout time.Duration

	Collections struct {
		Competitions *mongo.Collection
		Teams        *mongo.Collection
		Scores       *mongo.Collection
	}
}

// NewMongoStore connects to uri, ensures the score key index and returns a store.
func NewMongoStore(ctx context.Context, uri, database string, opts ...Option) (*MongoStore, error) {
	if uri == "" || database == "" {
		return nil, errors.New("mongo uri and database cannot be empty")
	}
	cfg := newSettings(opts)

	connectCtx, cancel := context.WithTimeout(ctx, cfg.queryTimeout)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	s := NewMongoStoreFromDatabase(client.Database(database), opts...)
	s.client = client
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// NewMongoStoreFromDatabase wraps an existing database handle. Close does
// not disconnect a client it did not create.
func NewMongoStoreFromDatabase(db *mongo.Database, opts ...Option) *MongoStore {
	cfg := newSettings(opts)
	s := &MongoStore{timeout: cfg.queryTimeout}
	s.Collections.Competitions = db.Collection(CompetitionsCollection)
	s.Collections.Teams = db.Collection(TeamsCollection)
	s.Collections.Scores = db.Collection(ScoresCollection)
	return s
}

// EnsureIndexes creates the unique score key index and the team category index.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.Collections.Scores.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "teamId", Value: 1},
			{Key: "competitionId", Value: 1},
			{Key: "judgeId", Value: 1},
			{Key: "memberName", Value: 1},
		},
		Options: options.Index().SetUnique(true).SetName("score_key"),
	})
	if err != nil {
		return fmt.Errorf("create score index: %w", err)
	}
	_, err = s.Collections.Teams.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "type", Value: 1}},
		Options: options.Index().SetName("team_type"),
	})
	if err != nil {
		return fmt.Errorf("create team index: %w", err)
	}
	return nil
}

func (s *MongoStore) Competitions(ctx context.Context, publishedOnly bool) (out []model.Competition, err error) {
	defer func(start time.Time) { observe("competitions", start, err) }(time.Now())
	filter := bson.D{}
	if publishedOnly {
		filter = bson.D{{Key: "isPublished", Value: true}}
	}
	out = []model.Competition{}
	err = s.findAll(ctx, s.Collections.Competitions, filter, byCreation, &out)
	return out, err
}

func (s *MongoStore) Competition(ctx context.Context, id string) (c model.Competition, err error) {
	defer func(start time.Time) { observe("competition", start, err) }(time.Now())
	err = s.findOne(ctx, s.Collections.Competitions, id, &c)
	if errors.Is(err, ErrNotFound) {
		return c, fmt.Errorf("competition %q: %w", id, err)
	}
	return c, err
}

func (s *MongoStore) SaveCompetition(ctx context.Context, c model.Competition) (err error) {
	if c.ID == "" {
		return fmt.Errorf("competition: %w", ErrInvalidID)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	defer func(start time.Time) { observe("save_competition", start, err) }(time.Now())
	return s.replace(ctx, s.Collections.Competitions, c.ID, c)
}

func (s *MongoStore) Teams(ctx context.Context, category model.Category) (out []model.Team, err error) {
	defer func(start time.Time) { observe("teams", start, err) }(time.Now())
	filter := bson.D{}
	if category != "" {
		filter = bson.D{{Key: "type", Value: category}}
	}
	out = []model.Team{}
	err = s.findAll(ctx, s.Collections.Teams, filter, byCreation, &out)
	return out, err
}

func (s *MongoStore) Team(ctx context.Context, id string) (t model.Team, err error) {
	defer func(start time.Time) { observe("team", start, err) }(time.Now())
	err = s.findOne(ctx, s.Collections.Teams, id, &t)
	if errors.Is(err, ErrNotFound) {
		return t, fmt.Errorf("team %q: %w", id, err)
	}
	return t, err
}

func (s *MongoStore) SaveTeam(ctx context.Context, t model.Team) (err error) {
	if t.ID == "" {
		return fmt.Errorf("team: %w", ErrInvalidID)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	defer func(start time.Time) { observe("save_team", start, err) }(time.Now())
	return s.replace(ctx, s.Collections.Teams, t.ID, t)
}

func (s *MongoStore) Scores(ctx context.Context, teamIDs []string) (out []model.Score, err error) {
	defer func(start time.Time) { observe("scores", start, err) }(time.Now())
	filter := bson.D{}
	if len(teamIDs) > 0 {
		filter = bson.D{{Key: "teamId", Value: bson.D{{Key: "$in", Value: teamIDs}}}}
	}
	out = []model.Score{}
	err = s.findAll(ctx, s.Collections.Scores, filter, byObjectID, &out)
	return out, err
}

// UpsertScore sets the total of the row identified by the score key,
// creating it when absent.
func (s *MongoStore) UpsertScore(ctx context.Context, sc model.Score) (created bool, err error) {
	if !validScore(sc) {
		return false, ErrInvalidScore
	}
	if sc.UpdatedAt.IsZero() {
		sc.UpdatedAt = time.Now().UTC()
	}
	defer func(start time.Time) { observe("upsert_score", start, err) }(time.Now())

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	filter := bson.D{
		{Key: "teamId", Value: sc.TeamID},
		{Key: "competitionId", Value: sc.CompetitionID},
		{Key: "judgeId", Value: sc.JudgeID},
		{Key: "memberName", Value: sc.MemberName},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "totalScore", Value: sc.TotalScore},
		{Key: "updatedAt", Value: sc.UpdatedAt},
	}}}
	res, err := s.Collections.Scores.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return false, fmt.Errorf("score upsert failed: %w", err)
	}
	return res.UpsertedCount > 0, nil
}

func (s *MongoStore) Counts(ctx context.Context) (Counts, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var c Counts
	for _, target := range []struct {
		coll *mongo.Collection
		dst  *int
	}{
		{s.Collections.Competitions, &c.Competitions},
		{s.Collections.Teams, &c.Teams},
		{s.Collections.Scores, &c.Scores},
	} {
		n, err := target.coll.CountDocuments(ctx, bson.D{})
		if err != nil {
			return Counts{}, fmt.Errorf("count %s: %w", target.coll.Name(), err)
		}
		*target.dst = int(n)
	}
	publishCounts(c)
	return c, nil
}

// Close disconnects the client created by NewMongoStore.
func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// Registration documents carry caller-chosen string ids, so insertion
// order comes from createdAt. Score rows get server ObjectIDs.
var (
	byCreation = bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}
	byObjectID = bson.D{{Key: "_id", Value: 1}}
)

// findAll decodes every document matching filter in the given order.
func (s *MongoStore) findAll(ctx context.Context, coll *mongo.Collection, filter, sort bson.D, out any) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cur, err := coll.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return fmt.Errorf("find %s: %w", coll.Name(), err)
	}
	if err := cur.All(ctx, out); err != nil {
		return fmt.Errorf("decode %s: %w", coll.Name(), err)
	}
	return nil
}

func (s *MongoStore) findOne(ctx context.Context, coll *mongo.Collection, id string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("find %s %q: %w", coll.Name(), id, err)
	}
	return nil
}

func (s *MongoStore) replace(ctx context.Context, coll *mongo.Collection, id string, doc any) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: id}}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("%s replace failed: %w", coll.Name(), err)
	}
	return nil
}
