package profile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/khoahotran/devconnect/adapters/persistence"
	"github.com/khoahotran/devconnect/internal/domain/account"
	"github.com/khoahotran/devconnect/internal/domain/profile"
	"github.com/khoahotran/devconnect/pkg/apperror"
	"github.com/khoahotran/devconnect/pkg/logger"
	"github.com/khoahotran/devconnect/pkg/validation"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishProfileEvent(ctx context.Context, evt profile.Event) error {
	return m.Called(ctx, evt).Error(0)
}

// failingDeleteAccounts serves reads from the embedded repo and fails every
// delete.
type failingDeleteAccounts struct {
	account.Repository
	err error
}

func (f failingDeleteAccounts) Delete(context.Context, uuid.UUID) error { return f.err }

// staleOwnerReads answers FindByOwner with a profile the store no longer
// holds, as a lagging cache would.
type staleOwnerReads struct {
	profile.Repository
	stale *profile.Profile
}

func (r staleOwnerReads) FindByOwner(context.Context, uuid.UUID) (*profile.Profile, error) {
	return r.stale.Clone(), nil
}

type ProfileUseCaseTestSuite struct {
	suite.Suite
	profiles  profile.Repository
	accounts  account.Repository
	publisher *MockPublisher
	uc        *ProfileUseCase
	ctx       context.Context
}

func TestProfileUseCase(t *testing.T) {
	suite.Run(t, new(ProfileUseCaseTestSuite))
}

func (s *ProfileUseCaseTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.profiles = persistence.NewMemoryProfileRepo()
	s.accounts = persistence.NewMemoryAccountRepo()
	s.publisher = new(MockPublisher)
	s.publisher.On("PublishProfileEvent", mock.Anything, mock.Anything).Return(nil)
	s.uc = NewProfileUseCase(s.profiles, s.accounts, validation.New(), s.publisher, logger.NewNopLogger())
}

func str(s string) *string { return &s }

func (s *ProfileUseCaseTestSuite) newAccount(name string) uuid.UUID {
	id := uuid.New()
	s.Require().NoError(s.accounts.Save(s.ctx, &account.Account{ID: id, Name: name, Email: name + "@example.com", Avatar: "//gravatar/" + name}))
	return id
}

func validInput(owner uuid.UUID, handle string) UpsertProfileInput {
	return UpsertProfileInput{
		OwnerID: owner,
		Handle:  str(handle),
		Status:  str("Developer"),
		Skills:  str("go,sql"),
	}
}

func (s *ProfileUseCaseTestSuite) mustCreate(owner uuid.UUID, handle string) *profile.Profile {
	out, err := s.uc.ExecuteUpsertProfile(s.ctx, validInput(owner, handle))
	s.Require().NoError(err)
	s.Require().True(out.Created)
	return out.Profile
}

func (s *ProfileUseCaseTestSuite) TestUpsert_CreatesWithEmptySubCollections() {
	owner := s.newAccount("ada")

	out, err := s.uc.ExecuteUpsertProfile(s.ctx, UpsertProfileInput{
		OwnerID:  owner,
		Handle:   str("ada"),
		Status:   str("Developer"),
		Skills:   str("go, sql,,"),
		Website:  str("https://ada.dev"),
		Twitter:  str("https://twitter.com/ada"),
		Facebook: str(""),
	})

	s.Require().NoError(err)
	s.True(out.Created)
	s.Equal(owner, out.Profile.OwnerID)
	s.Equal("ada", out.Profile.Handle)
	s.Equal([]string{"go", " sql", "", ""}, out.Profile.Skills)
	s.Equal(map[string]string{profile.SocialTwitter: "https://twitter.com/ada"}, out.Profile.Social)
	s.Empty(out.Profile.Experience)
	s.NotNil(out.Profile.Experience)
	s.Empty(out.Profile.Education)
	s.NotNil(out.Profile.Education)
	s.publisher.AssertCalled(s.T(), "PublishProfileEvent", mock.Anything, mock.MatchedBy(func(e profile.Event) bool {
		return e.Type == profile.EventCreated && e.OwnerID == owner && e.Handle == "ada"
	}))
}

func (s *ProfileUseCaseTestSuite) TestUpsert_SparseUpdateKeepsUnsentFields() {
	owner := s.newAccount("ada")
	in := validInput(owner, "ada")
	in.Company = str("Analytical Engines")
	in.Bio = str("First programmer")
	in.YouTube = str("https://youtube.com/ada")
	_, err := s.uc.ExecuteUpsertProfile(s.ctx, in)
	s.Require().NoError(err)

	_, err = s.uc.ExecuteAddExperience(s.ctx, AddExperienceInput{
		OwnerID: owner, Title: "Engineer", Company: "Babbage", From: time.Date(1842, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	s.Require().NoError(err)

	update := validInput(owner, "ada")
	update.Status = str("Lead")
	update.Skills = str("math")
	update.Company = str("")
	update.Instagram = str("https://instagram.com/ada")
	out, err := s.uc.ExecuteUpsertProfile(s.ctx, update)

	s.Require().NoError(err)
	s.False(out.Created)
	s.Equal("Lead", out.Profile.Status)
	s.Equal([]string{"math"}, out.Profile.Skills)
	s.Equal("Analytical Engines", out.Profile.Company, "empty value is treated as not sent")
	s.Equal("First programmer", out.Profile.Bio)
	s.Equal("https://youtube.com/ada", out.Profile.Social[profile.SocialYouTube])
	s.Equal("https://instagram.com/ada", out.Profile.Social[profile.SocialInstagram])
	s.Len(out.Profile.Experience, 1, "upsert never touches sub-collections")
}

func (s *ProfileUseCaseTestSuite) TestUpsert_HandleTakenByAnotherOwner() {
	first := s.newAccount("ada")
	second := s.newAccount("grace")
	s.mustCreate(first, "pioneer")

	_, err := s.uc.ExecuteUpsertProfile(s.ctx, validInput(second, "pioneer"))

	s.Require().Error(err)
	s.ErrorIs(err, profile.ErrHandleTaken)
	s.ErrorIs(err, apperror.ErrConflict)
	var appErr *apperror.AppError
	s.Require().ErrorAs(err, &appErr)
	s.Equal("That handle already exists", appErr.Fields["handle"])

	_, err = s.profiles.FindByOwner(s.ctx, second)
	s.ErrorIs(err, profile.ErrNotFound, "no insert after a handle conflict")
}

func (s *ProfileUseCaseTestSuite) TestUpsert_UpdateToTakenHandle() {
	first := s.newAccount("ada")
	second := s.newAccount("grace")
	s.mustCreate(first, "ada")
	s.mustCreate(second, "grace")

	_, err := s.uc.ExecuteUpsertProfile(s.ctx, validInput(second, "ada"))

	s.ErrorIs(err, profile.ErrHandleTaken)
	p, err := s.profiles.FindByOwner(s.ctx, second)
	s.Require().NoError(err)
	s.Equal("grace", p.Handle)
}

func (s *ProfileUseCaseTestSuite) TestUpsert_ValidationFailureLeavesStoreUntouched() {
	owner := s.newAccount("ada")
	in := validInput(owner, "a")
	in.Website = str("not a url")
	in.Status = nil

	_, err := s.uc.ExecuteUpsertProfile(s.ctx, in)

	s.Require().Error(err)
	s.ErrorIs(err, apperror.ErrInvalidInput)
	var appErr *apperror.AppError
	s.Require().ErrorAs(err, &appErr)
	s.Contains(appErr.Fields, "handle")
	s.Contains(appErr.Fields, "website")
	s.Contains(appErr.Fields, "status")

	_, err = s.profiles.FindByOwner(s.ctx, owner)
	s.ErrorIs(err, profile.ErrNotFound)
	s.publisher.AssertNotCalled(s.T(), "PublishProfileEvent", mock.Anything, mock.Anything)
}

func (s *ProfileUseCaseTestSuite) TestUpsert_ConcurrentSameHandleHasOneWinner() {
	const n = 16
	owners := make([]uuid.UUID, n)
	for i := range owners {
		owners[i] = s.newAccount(fmt.Sprintf("user%d", i))
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range owners {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.uc.ExecuteUpsertProfile(s.ctx, validInput(owners[i], "contested"))
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		s.ErrorIs(err, profile.ErrHandleTaken)
	}
	s.Equal(1, winners)

	all, err := s.profiles.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 1)
}

func (s *ProfileUseCaseTestSuite) TestUpsert_ConcurrentSameOwnerCreatesOnce() {
	owner := s.newAccount("ada")
	const n = 12

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := s.uc.ExecuteUpsertProfile(s.ctx, validInput(owner, "ada"))
			if !s.NoError(err) {
				return
			}
			if out.Created {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.Equal(1, created)
	all, err := s.profiles.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 1)
}

func (s *ProfileUseCaseTestSuite) TestUpsert_StaleReadAfterDeleteRecreates() {
	owner := s.newAccount("ada")
	old := s.mustCreate(owner, "ada")
	s.Require().NoError(s.profiles.Delete(s.ctx, owner))
	uc := NewProfileUseCase(staleOwnerReads{Repository: s.profiles, stale: old}, s.accounts,
		validation.New(), s.publisher, logger.NewNopLogger())

	out, err := uc.ExecuteUpsertProfile(s.ctx, validInput(owner, "ada"))

	s.Require().NoError(err)
	s.True(out.Created)
	stored, err := s.profiles.FindByOwner(s.ctx, owner)
	s.Require().NoError(err)
	s.Equal("ada", stored.Handle)
}

func (s *ProfileUseCaseTestSuite) TestSubCollections_RequireProfile() {
	owner := s.newAccount("ada")

	_, err := s.uc.ExecuteAddExperience(s.ctx, AddExperienceInput{
		OwnerID: owner, Title: "Engineer", Company: "Babbage", From: time.Now(),
	})
	s.ErrorIs(err, profile.ErrProfileNotFound)
	s.ErrorIs(err, apperror.ErrNotFound)

	_, err = s.uc.ExecuteAddEducation(s.ctx, AddEducationInput{
		OwnerID: owner, School: "Home", Degree: "None", FieldOfStudy: "Math", From: time.Now(),
	})
	s.ErrorIs(err, profile.ErrProfileNotFound)

	_, err = s.uc.ExecuteRemoveExperience(s.ctx, RemoveEntryInput{OwnerID: owner, EntryID: "x"})
	s.ErrorIs(err, profile.ErrProfileNotFound)

	_, err = s.uc.ExecuteRemoveEducation(s.ctx, RemoveEntryInput{OwnerID: owner, EntryID: "x"})
	s.ErrorIs(err, profile.ErrProfileNotFound)

	_, err = s.profiles.FindByOwner(s.ctx, owner)
	s.ErrorIs(err, profile.ErrNotFound, "sub-collection edits never create a profile")
}

func (s *ProfileUseCaseTestSuite) TestSubCollections_NewestFirstAndRemoval() {
	owner := s.newAccount("ada")
	s.mustCreate(owner, "ada")

	var ids []string
	for _, title := range []string{"first", "second", "third"} {
		out, err := s.uc.ExecuteAddExperience(s.ctx, AddExperienceInput{
			OwnerID: owner, Title: title, Company: "Co", From: time.Now(),
		})
		s.Require().NoError(err)
		s.Equal(title, out.Profile.Experience[0].Title)
		s.NotEmpty(out.Profile.Experience[0].ID)
		ids = append(ids, out.Profile.Experience[0].ID)
	}

	out, err := s.uc.ExecuteRemoveExperience(s.ctx, RemoveEntryInput{OwnerID: owner, EntryID: "does-not-exist"})
	s.Require().NoError(err)
	s.Len(out.Profile.Experience, 3)

	out, err = s.uc.ExecuteRemoveExperience(s.ctx, RemoveEntryInput{OwnerID: owner, EntryID: ids[1]})
	s.Require().NoError(err)
	s.Require().Len(out.Profile.Experience, 2)
	s.Equal("third", out.Profile.Experience[0].Title)
	s.Equal("first", out.Profile.Experience[1].Title)
	s.Equal(ids[2], out.Profile.Experience[0].ID, "ids are stable across removals")

	edu, err := s.uc.ExecuteAddEducation(s.ctx, AddEducationInput{
		OwnerID: owner, School: "Home", Degree: "BSc", FieldOfStudy: "Math", From: time.Now(),
	})
	s.Require().NoError(err)
	s.Len(edu.Profile.Education, 1)
	s.Len(edu.Profile.Experience, 2, "education edits leave experience alone")

	out, err = s.uc.ExecuteRemoveEducation(s.ctx, RemoveEntryInput{OwnerID: owner, EntryID: edu.Profile.Education[0].ID})
	s.Require().NoError(err)
	s.Empty(out.Profile.Education)
}

func (s *ProfileUseCaseTestSuite) TestSubCollections_InvalidEntry() {
	owner := s.newAccount("ada")
	s.mustCreate(owner, "ada")

	_, err := s.uc.ExecuteAddExperience(s.ctx, AddExperienceInput{OwnerID: owner, Company: "Co"})

	s.ErrorIs(err, apperror.ErrInvalidInput)
	p, err := s.profiles.FindByOwner(s.ctx, owner)
	s.Require().NoError(err)
	s.Empty(p.Experience)
}

func (s *ProfileUseCaseTestSuite) TestSubCollections_ConcurrentAppendsAreNotLost() {
	owner := s.newAccount("ada")
	s.mustCreate(owner, "ada")
	const n = 25

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.uc.ExecuteAddExperience(s.ctx, AddExperienceInput{
				OwnerID: owner, Title: fmt.Sprintf("job-%d", i), Company: "Co", From: time.Now(),
			})
			s.NoError(err)
		}(i)
	}
	wg.Wait()

	p, err := s.profiles.FindByOwner(s.ctx, owner)
	s.Require().NoError(err)
	s.Len(p.Experience, n)
	seen := map[string]bool{}
	for _, exp := range p.Experience {
		seen[exp.ID] = true
	}
	s.Len(seen, n)
}

func (s *ProfileUseCaseTestSuite) TestReads_JoinOwnerSummary() {
	ada := s.newAccount("ada")
	s.mustCreate(ada, "ada")
	orphan := uuid.New()
	s.mustCreate(orphan, "ghost")

	out, err := s.uc.ExecuteGetProfileByHandle(s.ctx, GetProfileByHandleInput{Handle: "ada"})
	s.Require().NoError(err)
	s.Require().NotNil(out.View.Owner)
	s.Equal("ada", out.View.Owner.Name)
	s.Equal("//gravatar/ada", out.View.Owner.Avatar)

	out, err = s.uc.ExecuteGetProfile(s.ctx, GetProfileInput{OwnerID: orphan})
	s.Require().NoError(err)
	s.Nil(out.View.Owner)

	list, err := s.uc.ExecuteListProfiles(s.ctx)
	s.Require().NoError(err)
	s.Len(list.Profiles, 2)

	_, err = s.uc.ExecuteGetProfileByHandle(s.ctx, GetProfileByHandleInput{Handle: "nobody"})
	s.ErrorIs(err, apperror.ErrNotFound)
	_, err = s.uc.ExecuteGetProfile(s.ctx, GetProfileInput{OwnerID: uuid.New()})
	s.ErrorIs(err, profile.ErrNotFound)
}

func (s *ProfileUseCaseTestSuite) TestReads_EmptyList() {
	list, err := s.uc.ExecuteListProfiles(s.ctx)
	s.Require().NoError(err)
	s.NotNil(list.Profiles)
	s.Empty(list.Profiles)
}

func (s *ProfileUseCaseTestSuite) TestDelete_CascadesToAccount() {
	owner := s.newAccount("ada")
	s.mustCreate(owner, "ada")

	s.Require().NoError(s.uc.ExecuteDeleteProfileAndAccount(s.ctx, DeleteProfileInput{OwnerID: owner}))

	_, err := s.uc.ExecuteGetProfile(s.ctx, GetProfileInput{OwnerID: owner})
	s.ErrorIs(err, profile.ErrNotFound)
	_, err = s.accounts.FindByID(s.ctx, owner)
	s.ErrorIs(err, account.ErrAccountNotFound)

	_, err = s.profiles.FindByHandle(s.ctx, "ada")
	s.ErrorIs(err, profile.ErrNotFound, "handle is free again")
}

func (s *ProfileUseCaseTestSuite) TestDelete_MissingProfile() {
	owner := s.newAccount("ada")

	err := s.uc.ExecuteDeleteProfileAndAccount(s.ctx, DeleteProfileInput{OwnerID: owner})

	s.ErrorIs(err, profile.ErrNotFound)
	_, err = s.accounts.FindByID(s.ctx, owner)
	s.NoError(err, "account is kept when the first step fails")
}

func (s *ProfileUseCaseTestSuite) TestDelete_AccountAlreadyGone() {
	owner := uuid.New()
	s.mustCreate(owner, "ada")

	s.NoError(s.uc.ExecuteDeleteProfileAndAccount(s.ctx, DeleteProfileInput{OwnerID: owner}))
}

func (s *ProfileUseCaseTestSuite) TestDelete_AccountFailureIsReportedAsOrphan() {
	owner := s.newAccount("ada")
	s.mustCreate(owner, "ada")
	storeErr := apperror.NewUnavailable("postgres down", errors.New("dial tcp"))
	uc := NewProfileUseCase(s.profiles, failingDeleteAccounts{Repository: s.accounts, err: storeErr},
		validation.New(), s.publisher, logger.NewNopLogger())

	err := uc.ExecuteDeleteProfileAndAccount(s.ctx, DeleteProfileInput{OwnerID: owner})

	s.Require().Error(err)
	s.ErrorIs(err, ErrOrphanedAccount)
	s.ErrorIs(err, apperror.ErrUnavailable)
	_, err = s.profiles.FindByOwner(s.ctx, owner)
	s.ErrorIs(err, profile.ErrNotFound)
	s.publisher.AssertCalled(s.T(), "PublishProfileEvent", mock.Anything, mock.MatchedBy(func(e profile.Event) bool {
		return e.Type == profile.EventAccountOrphaned && e.OwnerID == owner && e.Reason != ""
	}))
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("PublishProfileEvent", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	uc := NewProfileUseCase(persistence.NewMemoryProfileRepo(), persistence.NewMemoryAccountRepo(),
		validation.New(), pub, logger.NewNopLogger())

	out, err := uc.ExecuteUpsertProfile(context.Background(), validInput(uuid.New(), "ada"))

	require.NoError(t, err)
	assert.True(t, out.Created)
	pub.AssertNumberOfCalls(t, "PublishProfileEvent", 1)
}
