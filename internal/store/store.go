package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Store owns the MongoDB connection and hands out the typed repositories.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger

	Guilds *Guilds
	Users  *Users
	Cases  *Cases
	Jobs   *Jobs
}

func New(ctx context.Context, uri, dbName string, logger *zap.Logger) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(connectCtx, clientOpts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		return nil, err
	}

	db := client.Database(dbName)
	s := &Store{
		client: client,
		db:     db,
		logger: logger,
	}
	s.Guilds = &Guilds{coll: db.Collection("guilds")}
	s.Users = &Users{coll: db.Collection("users")}
	s.Cases = &Cases{coll: db.Collection("cases")}
	s.Jobs = &Jobs{coll: db.Collection("jobs")}

	logger.Info("connected to document store", zap.String("database", dbName))
	return s, nil
}

func (s *Store) Close(ctx context.Context) {
	if s.client == nil {
		return
	}
	disconnectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.client.Disconnect(disconnectCtx); err != nil {
		s.logger.Warn("store disconnect failed", zap.Error(err))
	}
}
