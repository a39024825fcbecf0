package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/khoahotran/devconnect/internal/domain/profile"
	"github.com/khoahotran/devconnect/pkg/logger"
)

type experienceDocument struct {
	ID          string     `bson:"id"`
	Title       string     `bson:"title"`
	Company     string     `bson:"company"`
	Location    string     `bson:"location,omitempty"`
	From        time.Time  `bson:"from"`
	To          *time.Time `bson:"to,omitempty"`
	Current     bool       `bson:"current"`
	Description string     `bson:"description,omitempty"`
}

type educationDocument struct {
	ID           string     `bson:"id"`
	School       string     `bson:"school"`
	Degree       string     `bson:"degree"`
	FieldOfStudy string     `bson:"field_of_study"`
	From         time.Time  `bson:"from"`
	To           *time.Time `bson:"to,omitempty"`
	Current      bool       `bson:"current"`
	Description  string     `bson:"description,omitempty"`
}

// profileDocument is the stored shape. An empty handle is omitted so the
// partial handle index skips the document.
type profileDocument struct {
	Owner      string               `bson:"owner"`
	Handle     string               `bson:"handle,omitempty"`
	Company    string               `bson:"company,omitempty"`
	Website    string               `bson:"website,omitempty"`
	Location   string               `bson:"location,omitempty"`
	Bio        string               `bson:"bio,omitempty"`
	Status     string               `bson:"status,omitempty"`
	Skills     []string             `bson:"skills"`
	Social     map[string]string    `bson:"social"`
	Experience []experienceDocument `bson:"experience"`
	Education  []educationDocument  `bson:"education"`
	CreatedAt  time.Time            `bson:"created_at"`
	UpdatedAt  time.Time            `bson:"updated_at"`
}

type mongoProfileRepo struct {
	coll   *mongo.Collection
	logger logger.Logger
	now    func() time.Time
}

func NewMongoProfileRepo(db *mongo.Database, logger logger.Logger) profile.Repository {
	return &mongoProfileRepo{
		coll:   db.Collection(profilesCollection),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func byOwner(ownerID uuid.UUID) bson.D {
	return bson.D{{Key: "owner", Value: ownerID.String()}}
}

func (r *mongoProfileRepo) FindByOwner(ctx context.Context, ownerID uuid.UUID) (*profile.Profile, error) {
	return r.findOne(ctx, byOwner(ownerID), "owner", ownerID.String())
}

func (r *mongoProfileRepo) FindByHandle(ctx context.Context, handle string) (*profile.Profile, error) {
	return r.findOne(ctx, bson.D{{Key: "handle", Value: handle}}, "handle", handle)
}

func (r *mongoProfileRepo) findOne(ctx context.Context, filter bson.D, key, value string) (*profile.Profile, error) {
	var doc profileDocument
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, profileNotFound(key, value)
		}
		return nil, classifyMongoErr("find profile", err)
	}
	return r.toDomain(&doc), nil
}

func (r *mongoProfileRepo) ListAll(ctx context.Context) ([]*profile.Profile, error) {
	cur, err := r.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, classifyMongoErr("list profiles", err)
	}
	defer cur.Close(ctx)

	var docs []profileDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, classifyMongoErr("decode profiles", err)
	}

	out := make([]*profile.Profile, 0, len(docs))
	for i := range docs {
		out = append(out, r.toDomain(&docs[i]))
	}
	return out, nil
}

func (r *mongoProfileRepo) Insert(ctx context.Context, p *profile.Profile) (*profile.Profile, error) {
	doc := fromDomain(p)
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, classifyDuplicate(err, doc.Owner, doc.Handle)
		}
		return nil, classifyMongoErr("insert profile", err)
	}
	return r.toDomain(doc), nil
}

// Update sets only the provided fields. Social keys are set individually so
// keys that were not sent keep their stored value.
func (r *mongoProfileRepo) Update(ctx context.Context, ownerID uuid.UUID, fields profile.Fields) (*profile.Profile, error) {
	set := bson.D{{Key: "updated_at", Value: r.now()}}
	appendSet := func(key string, v *string) {
		if v != nil {
			set = append(set, bson.E{Key: key, Value: *v})
		}
	}
	if fields.HasHandle() {
		appendSet("handle", fields.Handle)
	}
	appendSet("company", fields.Company)
	appendSet("website", fields.Website)
	appendSet("location", fields.Location)
	appendSet("bio", fields.Bio)
	appendSet("status", fields.Status)
	if fields.Skills != nil {
		set = append(set, bson.E{Key: "skills", Value: fields.Skills})
	}
	for _, platform := range profile.SocialPlatforms {
		if v, ok := fields.Social[platform]; ok {
			set = append(set, bson.E{Key: "social." + platform, Value: v})
		}
	}

	p, err := r.findOneAndUpdate(ctx, ownerID, bson.D{{Key: "$set", Value: set}}, "update profile")
	if err != nil && mongo.IsDuplicateKeyError(err) {
		handle := ""
		if fields.Handle != nil {
			handle = *fields.Handle
		}
		return nil, classifyDuplicate(err, ownerID.String(), handle)
	}
	return p, err
}

func (r *mongoProfileRepo) Delete(ctx context.Context, ownerID uuid.UUID) error {
	res, err := r.coll.DeleteOne(ctx, byOwner(ownerID))
	if err != nil {
		return classifyMongoErr("delete profile", err)
	}
	if res.DeletedCount == 0 {
		return profileNotFound("owner", ownerID.String())
	}
	return nil
}

// PushExperience inserts at position 0 in one server-side update, so
// concurrent appends never overwrite each other.
func (r *mongoProfileRepo) PushExperience(ctx context.Context, ownerID uuid.UUID, exp profile.Experience) (*profile.Profile, error) {
	update := bson.D{
		{Key: "$push", Value: bson.D{{Key: "experience", Value: bson.D{
			{Key: "$each", Value: []experienceDocument{experienceToDocument(exp)}},
			{Key: "$position", Value: 0},
		}}}},
		{Key: "$set", Value: bson.D{{Key: "updated_at", Value: r.now()}}},
	}
	return r.findOneAndUpdate(ctx, ownerID, update, "push experience")
}

func (r *mongoProfileRepo) PullExperience(ctx context.Context, ownerID uuid.UUID, expID string) (*profile.Profile, error) {
	update := bson.D{
		{Key: "$pull", Value: bson.D{{Key: "experience", Value: bson.D{{Key: "id", Value: expID}}}}},
		{Key: "$set", Value: bson.D{{Key: "updated_at", Value: r.now()}}},
	}
	return r.findOneAndUpdate(ctx, ownerID, update, "pull experience")
}

func (r *mongoProfileRepo) PushEducation(ctx context.Context, ownerID uuid.UUID, edu profile.Education) (*profile.Profile, error) {
	update := bson.D{
		{Key: "$push", Value: bson.D{{Key: "education", Value: bson.D{
			{Key: "$each", Value: []educationDocument{educationToDocument(edu)}},
			{Key: "$position", Value: 0},
		}}}},
		{Key: "$set", Value: bson.D{{Key: "updated_at", Value: r.now()}}},
	}
	return r.findOneAndUpdate(ctx, ownerID, update, "push education")
}

func (r *mongoProfileRepo) PullEducation(ctx context.Context, ownerID uuid.UUID, eduID string) (*profile.Profile, error) {
	update := bson.D{
		{Key: "$pull", Value: bson.D{{Key: "education", Value: bson.D{{Key: "id", Value: eduID}}}}},
		{Key: "$set", Value: bson.D{{Key: "updated_at", Value: r.now()}}},
	}
	return r.findOneAndUpdate(ctx, ownerID, update, "pull education")
}

// findOneAndUpdate returns raw duplicate key errors so the caller can
// classify them with the values it knows.
func (r *mongoProfileRepo) findOneAndUpdate(ctx context.Context, ownerID uuid.UUID, update bson.D, op string) (*profile.Profile, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc profileDocument
	err := r.coll.FindOneAndUpdate(ctx, byOwner(ownerID), update, opts).Decode(&doc)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, profileNotFound("owner", ownerID.String())
		case mongo.IsDuplicateKeyError(err):
			return nil, err
		default:
			return nil, classifyMongoErr(op, err)
		}
	}
	return r.toDomain(&doc), nil
}

func fromDomain(p *profile.Profile) *profileDocument {
	doc := &profileDocument{
		Owner:      p.OwnerID.String(),
		Handle:     p.Handle,
		Company:    p.Company,
		Website:    p.Website,
		Location:   p.Location,
		Bio:        p.Bio,
		Status:     p.Status,
		Skills:     p.Skills,
		Social:     p.Social,
		Experience: make([]experienceDocument, 0, len(p.Experience)),
		Education:  make([]educationDocument, 0, len(p.Education)),
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
	if doc.Skills == nil {
		doc.Skills = []string{}
	}
	if doc.Social == nil {
		doc.Social = map[string]string{}
	}
	for _, exp := range p.Experience {
		doc.Experience = append(doc.Experience, experienceToDocument(exp))
	}
	for _, edu := range p.Education {
		doc.Education = append(doc.Education, educationToDocument(edu))
	}
	return doc
}

func (r *mongoProfileRepo) toDomain(doc *profileDocument) *profile.Profile {
	ownerID, err := uuid.Parse(doc.Owner)
	if err != nil {
		r.logger.Warn("Stored profile has a malformed owner", zap.String("owner", doc.Owner), zap.Error(err))
	}
	p := &profile.Profile{
		OwnerID:    ownerID,
		Handle:     doc.Handle,
		Company:    doc.Company,
		Website:    doc.Website,
		Location:   doc.Location,
		Bio:        doc.Bio,
		Status:     doc.Status,
		Skills:     doc.Skills,
		Social:     doc.Social,
		Experience: make([]profile.Experience, 0, len(doc.Experience)),
		Education:  make([]profile.Education, 0, len(doc.Education)),
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}
	if p.Skills == nil {
		p.Skills = []string{}
	}
	if p.Social == nil {
		p.Social = map[string]string{}
	}
	for _, e := range doc.Experience {
		p.Experience = append(p.Experience, profile.Experience{
			ID: e.ID, Title: e.Title, Company: e.Company, Location: e.Location,
			From: e.From, To: e.To, Current: e.Current, Description: e.Description,
		})
	}
	for _, e := range doc.Education {
		p.Education = append(p.Education, profile.Education{
			ID: e.ID, School: e.School, Degree: e.Degree, FieldOfStudy: e.FieldOfStudy,
			From: e.From, To: e.To, Current: e.Current, Description: e.Description,
		})
	}
	return p
}

func experienceToDocument(e profile.Experience) experienceDocument {
	return experienceDocument{
		ID: e.ID, Title: e.Title, Company: e.Company, Location: e.Location,
		From: e.From, To: e.To, Current: e.Current, Description: e.Description,
	}
}

func educationToDocument(e profile.Education) educationDocument {
	return educationDocument{
		ID: e.ID, School: e.School, Degree: e.Degree, FieldOfStudy: e.FieldOfStudy,
		From: e.From, To: e.To, Current: e.Current, Description: e.Description,
	}
}
