package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrDuplicateWord = errors.New("word is already on the list")
	ErrWordNotFound  = errors.New("word is not on the list")
	ErrTagNotFound   = errors.New("tag not found")
	ErrAlreadyListed = errors.New("id is already on the list")
	ErrNotListed     = errors.New("id is not on the list")
)

type Guilds struct {
	coll *mongo.Collection
}

// Get loads the config document for the guild, creating a default one on
// first access. Case numbering starts at 1.
func (g *Guilds) Get(ctx context.Context, guildID string) (GuildConfig, error) {
	var cfg GuildConfig
	err := g.coll.FindOne(ctx, bson.M{"_id": guildID}).Decode(&cfg)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return GuildConfig{}, err
	}

	cfg = GuildConfig{ID: guildID, CaseID: 1}
	if _, err := g.coll.InsertOne(ctx, cfg); err != nil && !mongo.IsDuplicateKeyError(err) {
		return GuildConfig{}, err
	}
	return cfg, nil
}

func (g *Guilds) Save(ctx context.Context, cfg GuildConfig) error {
	opts := options.Replace().SetUpsert(true)
	_, err := g.coll.ReplaceOne(ctx, bson.M{"_id": cfg.ID}, cfg, opts)
	return err
}

// IncCaseID atomically bumps the next-available case counter and returns the
// number to use for the case being created.
func (g *Guilds) IncCaseID(ctx context.Context, guildID string) (int64, error) {
	if _, err := g.Get(ctx, guildID); err != nil {
		return 0, err
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)
	var before GuildConfig
	err := g.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": guildID},
		bson.M{"$inc": bson.M{"case_id": 1}},
		opts,
	).Decode(&before)
	if err != nil {
		return 0, err
	}
	return before.CaseID, nil
}

func (g *Guilds) SetSpamMode(ctx context.Context, guildID string, banToday bool) error {
	if _, err := g.Get(ctx, guildID); err != nil {
		return err
	}
	_, err := g.coll.UpdateOne(ctx,
		bson.M{"_id": guildID},
		bson.M{"$set": bson.M{"ban_today_spam_accounts": banToday}},
	)
	return err
}

func (g *Guilds) AddFilterWord(ctx context.Context, guildID string, word FilterWord) error {
	return g.pushWord(ctx, guildID, "filter_words", word)
}

func (g *Guilds) RemoveFilterWord(ctx context.Context, guildID, word string) error {
	return g.pullWord(ctx, guildID, "filter_words", word)
}

func (g *Guilds) AddRaidPhrase(ctx context.Context, guildID string, phrase FilterWord) error {
	return g.pushWord(ctx, guildID, "raid_phrases", phrase)
}

func (g *Guilds) RemoveRaidPhrase(ctx context.Context, guildID, phrase string) error {
	return g.pullWord(ctx, guildID, "raid_phrases", phrase)
}

func (g *Guilds) pushWord(ctx context.Context, guildID, field string, word FilterWord) error {
	if _, err := g.Get(ctx, guildID); err != nil {
		return err
	}
	result, err := g.coll.UpdateOne(ctx,
		bson.M{"_id": guildID, field + ".word": bson.M{"$ne": word.Word}},
		bson.M{"$push": bson.M{field: word}},
	)
	if err != nil {
		return err
	}
	if result.ModifiedCount == 0 {
		return ErrDuplicateWord
	}
	return nil
}

func (g *Guilds) pullWord(ctx context.Context, guildID, field, word string) error {
	result, err := g.coll.UpdateOne(ctx,
		bson.M{"_id": guildID},
		bson.M{"$pull": bson.M{field: bson.M{"word": word}}},
	)
	if err != nil {
		return err
	}
	if result.ModifiedCount == 0 {
		return ErrWordNotFound
	}
	return nil
}

func (g *Guilds) AddWhitelistedGuild(ctx context.Context, guildID, externalID string) error {
	return g.pushID(ctx, guildID, "whitelisted_guilds", externalID)
}

func (g *Guilds) RemoveWhitelistedGuild(ctx context.Context, guildID, externalID string) error {
	return g.pullID(ctx, guildID, "whitelisted_guilds", externalID)
}

func (g *Guilds) AddIgnoredChannel(ctx context.Context, guildID, channelID string) error {
	return g.pushID(ctx, guildID, "ignored_channels", channelID)
}

func (g *Guilds) RemoveIgnoredChannel(ctx context.Context, guildID, channelID string) error {
	return g.pullID(ctx, guildID, "ignored_channels", channelID)
}

func (g *Guilds) pushID(ctx context.Context, guildID, field, id string) error {
	if _, err := g.Get(ctx, guildID); err != nil {
		return err
	}
	result, err := g.coll.UpdateOne(ctx,
		bson.M{"_id": guildID},
		bson.M{"$addToSet": bson.M{field: id}},
	)
	if err != nil {
		return err
	}
	if result.ModifiedCount == 0 {
		return ErrAlreadyListed
	}
	return nil
}

func (g *Guilds) pullID(ctx context.Context, guildID, field, id string) error {
	result, err := g.coll.UpdateOne(ctx,
		bson.M{"_id": guildID},
		bson.M{"$pull": bson.M{field: id}},
	)
	if err != nil {
		return err
	}
	if result.ModifiedCount == 0 {
		return ErrNotListed
	}
	return nil
}

func (g *Guilds) AddTag(ctx context.Context, guildID string, tag Tag) error {
	if _, err := g.Get(ctx, guildID); err != nil {
		return err
	}
	result, err := g.coll.UpdateOne(ctx,
		bson.M{"_id": guildID, "tags.name": bson.M{"$ne": tag.Name}},
		bson.M{"$push": bson.M{"tags": tag}},
	)
	if err != nil {
		return err
	}
	if result.ModifiedCount == 0 {
		return ErrDuplicateWord
	}
	return nil
}

func (g *Guilds) RemoveTag(ctx context.Context, guildID, name string) error {
	result, err := g.coll.UpdateOne(ctx,
		bson.M{"_id": guildID},
		bson.M{"$pull": bson.M{"tags": bson.M{"name": name}}},
	)
	if err != nil {
		return err
	}
	if result.ModifiedCount == 0 {
		return ErrTagNotFound
	}
	return nil
}

// GetTag returns the named tag and bumps its use counter.
func (g *Guilds) GetTag(ctx context.Context, guildID, name string) (Tag, error) {
	cfg, err := g.Get(ctx, guildID)
	if err != nil {
		return Tag{}, err
	}
	for _, tag := range cfg.Tags {
		if tag.Name == name {
			_, err = g.coll.UpdateOne(ctx,
				bson.M{"_id": guildID, "tags.name": name},
				bson.M{"$inc": bson.M{"tags.$.use_count": 1}},
			)
			return tag, err
		}
	}
	return Tag{}, ErrTagNotFound
}
