package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"

	"gitlab.com/avoncourt/revue/internal/models"
)

var sdb SharedDB

// rootH is the first account ever created, hence the superuser.
var rootH *UserH

const testPasswd = "testPass9!"

func init() {
	err := os.Chdir("./../..")
	if err != nil {
		panic(err)
	}
	config := models.ReadEnvConfig()
	// Min bcrypt cost, tests create a lot of users
	config.Debug = true

	// Reset database before testing
	err = MigrateDown(config.DatabaseURL)
	if err != nil {
		panic(err)
	}
	err = MigrateUp(config.DatabaseURL)
	if err != nil {
		panic(err)
	}
	sdb, err = Connect(&config)
	if err != nil {
		panic(err)
	}
	rootH, err = sdb.CreateUser(context.Background(), &models.User{Name: "root"}, testPasswd)
	if err != nil {
		panic(err)
	}
}

func mockUser(t *testing.T, name string) *UserH {
	t.Helper()
	uH, err := sdb.CreateUser(context.Background(), &models.User{Name: name}, testPasswd)
	if err != nil {
		t.Fatalf("CreateUser(%s) = %v, want nil", name, err)
	}
	return uH
}

func mockTicket(t *testing.T, uH *UserH, title string) *TicketH {
	t.Helper()
	ticket := &models.Ticket{Title: title, Description: "please review this"}
	tH, err := sdb.CreateTicket(context.Background(), *uH, ticket)
	if err != nil {
		t.Fatalf("CreateTicket(%s) = %v, want nil", title, err)
	}
	return tH
}

func TestCreateUserAndLogin(t *testing.T) {
	ctx := context.Background()

	_, err := sdb.CreateUser(ctx, &models.User{Name: "not a name"}, testPasswd)
	if !errors.Is(err, models.ErrInvalidFormat) {
		t.Fatalf("CreateUser with bad name = %v, want ErrInvalidFormat", err)
	}
	_, err = sdb.CreateUser(ctx, &models.User{Name: "weakpasswd"}, "short")
	if !errors.Is(err, models.ErrWeakPasswd) {
		t.Fatalf("CreateUser with weak passwd = %v, want ErrWeakPasswd", err)
	}

	user := &models.User{Name: "pippo"}
	uH, err := sdb.CreateUser(ctx, user, testPasswd)
	if err != nil {
		t.Fatalf("CreateUser(%v) = %v, want nil", user, err)
	}
	if user.IsSuperuser {
		t.Fatal("Only the first user should be a superuser")
	}

	_, err = sdb.CreateUser(ctx, &models.User{Name: "pippo"}, testPasswd)
	if !errors.Is(err, models.ErrUsernameAlreadyUsed) {
		t.Fatalf("Duplicate CreateUser = %v, want ErrUsernameAlreadyUsed", err)
	}

	token, err := sdb.Login(ctx, "pippo", testPasswd)
	if err != nil {
		t.Fatalf("Login = %v, want nil", err)
	}
	sessionH, err := sdb.GetUserH(ctx, token)
	if err != nil {
		t.Fatalf("GetUserH = %v, want nil", err)
	}
	if sessionH.ID() != uH.ID() {
		t.Fatalf("GetUserH resolved user %d, want %d", sessionH.ID(), uH.ID())
	}

	if _, err := sdb.Login(ctx, "pippo", "wrongPass9!"); err == nil {
		t.Fatal("Login with wrong password should fail")
	}
	if _, err := sdb.Login(ctx, "ghost", testPasswd); !errors.Is(err, models.ErrUserNotFound) {
		t.Fatalf("Login of unknown user = %v, want ErrUserNotFound", err)
	}

	if err := sdb.Signout(ctx, token); err != nil {
		t.Fatalf("Signout = %v, want nil", err)
	}
	if _, err := sdb.GetUserH(ctx, token); err == nil {
		t.Fatal("GetUserH after signout should fail")
	}
}

func TestFollow(t *testing.T) {
	ctx := context.Background()
	anna := mockUser(t, "anna")
	bruno := mockUser(t, "bruno")

	if err := anna.Follow(ctx, "anna"); !errors.Is(err, models.ErrSelfFollow) {
		t.Fatalf("Follow(self) = %v, want ErrSelfFollow", err)
	}
	if err := anna.Follow(ctx, "root"); !errors.Is(err, models.ErrPrivilegedFollow) {
		t.Fatalf("Follow(superuser) = %v, want ErrPrivilegedFollow", err)
	}
	if err := anna.Follow(ctx, "nobody"); !errors.Is(err, models.ErrUserNotFound) {
		t.Fatalf("Follow(unknown) = %v, want ErrUserNotFound", err)
	}

	if err := anna.Follow(ctx, "bruno"); err != nil {
		t.Fatalf("Follow(bruno) = %v, want nil", err)
	}
	if err := anna.Follow(ctx, "bruno"); !errors.Is(err, models.ErrAlreadyFollowing) {
		t.Fatalf("Second Follow(bruno) = %v, want ErrAlreadyFollowing", err)
	}

	following, err := anna.ListFollowing(ctx)
	if err != nil || len(following) != 1 {
		t.Fatalf("ListFollowing = %v, %v, want 1 edge", following, err)
	}
	followers, err := bruno.ListFollowers(ctx)
	if err != nil || len(followers) != 1 || followers[0].UserID != anna.ID() {
		t.Fatalf("ListFollowers = %v, %v, want anna", followers, err)
	}

	candidates, err := anna.ListFollowCandidates(ctx)
	if err != nil {
		t.Fatalf("ListFollowCandidates = %v, want nil", err)
	}
	for _, c := range candidates {
		if c.ID == anna.ID() || c.ID == bruno.ID() || c.IsSuperuser {
			t.Fatalf("ListFollowCandidates returned %v", c)
		}
	}

	if err := anna.Unfollow(ctx, bruno.ID()); err != nil {
		t.Fatalf("Unfollow = %v, want nil", err)
	}
	// Deleting an absent edge is a no-op
	if err := anna.Unfollow(ctx, bruno.ID()); err != nil {
		t.Fatalf("Second Unfollow = %v, want nil", err)
	}
	if err := anna.Unfollow(ctx, 999999); !errors.Is(err, models.ErrUserNotFound) {
		t.Fatalf("Unfollow(unknown id) = %v, want ErrUserNotFound", err)
	}
}

func TestSearchUser(t *testing.T) {
	ctx := context.Background()
	carla := mockUser(t, "carla")

	found, err := sdb.SearchUser(ctx, "ARL")
	if err != nil || found.ID != carla.ID() {
		t.Fatalf("SearchUser(ARL) = %v, %v, want carla", found, err)
	}

	// Superusers show up in search, only the follow is refused
	found, err = sdb.SearchUser(ctx, "ROOT")
	if err != nil || !found.IsSuperuser {
		t.Fatalf("SearchUser(ROOT) = %v, %v, want the superuser", found, err)
	}
	if err := carla.Follow(ctx, found.Name); !errors.Is(err, models.ErrPrivilegedFollow) {
		t.Fatalf("Follow(searched superuser) = %v, want ErrPrivilegedFollow", err)
	}

	// LIKE metacharacters match literally, not as wildcards
	if _, err := sdb.SearchUser(ctx, "_"); !errors.Is(err, models.ErrUserNotFound) {
		t.Fatalf("SearchUser(_) = %v, want ErrUserNotFound", err)
	}
	if _, err := sdb.SearchUser(ctx, "%"); !errors.Is(err, models.ErrUserNotFound) {
		t.Fatalf("SearchUser(%%) = %v, want ErrUserNotFound", err)
	}
	carlaBis := mockUser(t, "carla_bis")
	found, err = sdb.SearchUser(ctx, "a_b")
	if err != nil || found.ID != carlaBis.ID() {
		t.Fatalf("SearchUser(a_b) = %v, %v, want carla_bis", found, err)
	}

	if _, err := sdb.SearchUser(ctx, ""); !errors.Is(err, models.ErrInvalidFormat) {
		t.Fatalf("SearchUser(empty) = %v, want ErrInvalidFormat", err)
	}
	long := make([]byte, LimitMaxSearchLen+1)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := sdb.SearchUser(ctx, string(long)); !errors.Is(err, models.ErrInvalidFormat) {
		t.Fatalf("SearchUser(too long) = %v, want ErrInvalidFormat", err)
	}
	if _, err := sdb.SearchUser(ctx, "zzzzzz"); !errors.Is(err, models.ErrUserNotFound) {
		t.Fatalf("SearchUser(no match) = %v, want ErrUserNotFound", err)
	}
}

func TestTicketsAndReviews(t *testing.T) {
	ctx := context.Background()
	dario := mockUser(t, "dario")
	elena := mockUser(t, "elena")

	tH := mockTicket(t, dario, "Pale Fire")

	_, err := sdb.CreateReview(ctx, *elena, tH.ID(), &models.Review{
		Rating: 6, Headline: "Too good",
	})
	if !errors.Is(err, models.ErrBadRating) {
		t.Fatalf("CreateReview with rating 6 = %v, want ErrBadRating", err)
	}

	review := &models.Review{Rating: 4, Headline: "Dense but worth it", Body: "Read it twice."}
	rH, err := sdb.CreateReview(ctx, *elena, tH.ID(), review)
	if err != nil {
		t.Fatalf("CreateReview = %v, want nil", err)
	}

	_, err = sdb.CreateReview(ctx, *dario, tH.ID(), &models.Review{Rating: 5, Headline: "Mine too"})
	if !errors.Is(err, models.ErrAlreadyReviewed) {
		t.Fatalf("Second review on same ticket = %v, want ErrAlreadyReviewed", err)
	}

	_, err = sdb.CreateReview(ctx, *elena, 999999, &models.Review{Rating: 1, Headline: "Ghost"})
	if !errors.Is(err, models.ErrTicketNotFound) {
		t.Fatalf("Review on unknown ticket = %v, want ErrTicketNotFound", err)
	}

	// Author edits their review, the ticket is untouched
	elenaH, err := sdb.GetReviewH(ctx, rH.ID(), elena)
	if err != nil {
		t.Fatalf("GetReviewH = %v, want nil", err)
	}
	if elenaH.CanEditTicket() {
		t.Fatal("Reviewer of someone else's ticket must not edit the ticket")
	}
	if err := elenaH.Update(ctx, 2, "On reflection", "Read it a third time."); err != nil {
		t.Fatalf("Update own review = %v, want nil", err)
	}
	updated, err := elenaH.ReadView(ctx)
	if err != nil || updated.Rating != 2 || updated.Headline != "On reflection" {
		t.Fatalf("ReadView after update = %v, %v", updated, err)
	}
	if updated.TicketTitle != "Pale Fire" {
		t.Fatalf("Review update touched the ticket: %q", updated.TicketTitle)
	}
	err = elenaH.UpdateWithTicket(ctx, 2, "x", "y", "New title", "z", sql.NullString{})
	if !errors.Is(err, ErrPermDenied) {
		t.Fatalf("UpdateWithTicket by non-owner = %v, want ErrPermDenied", err)
	}

	// Non-author can't touch the review
	darioH, err := sdb.GetReviewH(ctx, rH.ID(), dario)
	if err != nil {
		t.Fatalf("GetReviewH = %v, want nil", err)
	}
	if err := darioH.Update(ctx, 5, "Hijack", ""); !errors.Is(err, ErrPermDenied) {
		t.Fatalf("Update of someone else's review = %v, want ErrPermDenied", err)
	}

	// Non-owner can't touch the ticket
	elenaTicketH, err := sdb.GetTicketH(ctx, tH.ID(), elena)
	if err != nil {
		t.Fatalf("GetTicketH = %v, want nil", err)
	}
	if elenaTicketH.CanEdit() {
		t.Fatal("Non-owner must not edit the ticket")
	}
	if err := elenaTicketH.Update(ctx, "New title", "", sql.NullString{}); !errors.Is(err, ErrPermDenied) {
		t.Fatalf("Ticket update by non-owner = %v, want ErrPermDenied", err)
	}
	if err := elenaTicketH.Delete(ctx); !errors.Is(err, ErrPermDenied) {
		t.Fatalf("Ticket delete by non-owner = %v, want ErrPermDenied", err)
	}

	// Owner deletes the ticket, the review goes with it
	darioTicketH, err := sdb.GetTicketH(ctx, tH.ID(), dario)
	if err != nil {
		t.Fatalf("GetTicketH = %v, want nil", err)
	}
	if err := darioTicketH.Delete(ctx); err != nil {
		t.Fatalf("Ticket delete by owner = %v, want nil", err)
	}
	if _, err := sdb.GetTicketH(ctx, tH.ID(), dario); !errors.Is(err, models.ErrTicketNotFound) {
		t.Fatalf("GetTicketH after delete = %v, want ErrTicketNotFound", err)
	}
	if _, err := sdb.GetReviewH(ctx, rH.ID(), elena); !errors.Is(err, models.ErrReviewNotFound) {
		t.Fatalf("GetReviewH after cascade = %v, want ErrReviewNotFound", err)
	}
}

func TestCreateTicketWithReview(t *testing.T) {
	ctx := context.Background()
	fabio := mockUser(t, "fabio")

	ticket := &models.Ticket{Title: "Il Gattopardo", Description: "thoughts?"}
	review := &models.Review{Rating: 5, Headline: "A classic", Body: "Everything must change."}
	if err := sdb.CreateTicketWithReview(ctx, *fabio, ticket, review); err != nil {
		t.Fatalf("CreateTicketWithReview = %v, want nil", err)
	}
	if review.TicketID != ticket.ID {
		t.Fatalf("Review bound to ticket %d, want %d", review.TicketID, ticket.ID)
	}

	// The author owns the ticket too: joint edit is allowed
	rH, err := sdb.GetReviewH(ctx, review.ID, fabio)
	if err != nil {
		t.Fatalf("GetReviewH = %v, want nil", err)
	}
	if !rH.CanEditTicket() {
		t.Fatal("Author-owner should get the joint edit form")
	}
	err = rH.UpdateWithTicket(ctx, 4, "A classic, still", "…", "Il Gattopardo (1958)", "thoughts?", sql.NullString{})
	if err != nil {
		t.Fatalf("UpdateWithTicket = %v, want nil", err)
	}

	feed, err := fabio.Feed(ctx)
	if err != nil {
		t.Fatalf("Feed = %v, want nil", err)
	}
	if len(feed) != 1 || feed[0].Kind != models.FeedKindReview {
		t.Fatalf("Feed = %v, want exactly the review", feed)
	}
}

func TestFeed(t *testing.T) {
	ctx := context.Background()
	franco := mockUser(t, "franco")
	gina := mockUser(t, "gina")
	hugo := mockUser(t, "hugo")

	if err := franco.Follow(ctx, "gina"); err != nil {
		t.Fatalf("Follow = %v, want nil", err)
	}

	// A bare ticket from a followed user shows up as TICKET
	t1 := mockTicket(t, gina, "Ada")
	feed, err := franco.Feed(ctx)
	if err != nil {
		t.Fatalf("Feed = %v, want nil", err)
	}
	if len(feed) != 1 || feed[0].Kind != models.FeedKindTicket || feed[0].Ticket.ID != t1.ID() {
		t.Fatalf("Feed = %v, want [TICKET Ada]", feed)
	}

	// Once reviewed, the ticket only appears through its review
	if _, err := sdb.CreateReview(ctx, *gina, t1.ID(), &models.Review{Rating: 3, Headline: "Self review"}); err != nil {
		t.Fatalf("CreateReview = %v, want nil", err)
	}
	feed, err = franco.Feed(ctx)
	if err != nil {
		t.Fatalf("Feed = %v, want nil", err)
	}
	if len(feed) != 1 || feed[0].Kind != models.FeedKindReview {
		t.Fatalf("Feed = %v, want exactly one REVIEW", feed)
	}

	// Own tickets are visible too, and newest first
	tf := mockTicket(t, franco, "Lolita")
	feed, err = franco.Feed(ctx)
	if err != nil {
		t.Fatalf("Feed = %v, want nil", err)
	}
	if len(feed) != 2 || feed[0].Kind != models.FeedKindTicket || feed[0].Ticket.ID != tf.ID() {
		t.Fatalf("Feed = %v, want own ticket first", feed)
	}
	for i := 1; i < len(feed); i++ {
		if feed[i].CreatedAt.After(feed[i-1].CreatedAt) {
			t.Fatalf("Feed out of order at %d: %v", i, feed)
		}
	}

	// A stranger reviewing my ticket is visible to me
	if _, err := sdb.CreateReview(ctx, *hugo, tf.ID(), &models.Review{Rating: 1, Headline: "Not for me"}); err != nil {
		t.Fatalf("CreateReview = %v, want nil", err)
	}
	feed, err = franco.Feed(ctx)
	if err != nil {
		t.Fatalf("Feed = %v, want nil", err)
	}
	if len(feed) != 2 {
		t.Fatalf("Feed = %v, want 2 items", feed)
	}
	if feed[0].Kind != models.FeedKindReview || feed[0].Review.AuthorID != hugo.ID() {
		t.Fatalf("Feed = %v, want hugo's review first", feed)
	}
	seen := map[string]bool{}
	for _, item := range feed {
		var key string
		if item.Kind == models.FeedKindReview {
			key = fmt.Sprintf("r%d", item.Review.ID)
		} else {
			key = fmt.Sprintf("t%d", item.Ticket.ID)
		}
		if seen[key] {
			t.Fatalf("Feed contains a duplicate: %v", feed)
		}
		seen[key] = true
	}

	// Hugo doesn't follow anybody: he sees his review and his own
	// content only
	hugoFeed, err := hugo.Feed(ctx)
	if err != nil {
		t.Fatalf("Feed = %v, want nil", err)
	}
	for _, item := range hugoFeed {
		if item.Kind == models.FeedKindTicket && item.Ticket.OwnerID != hugo.ID() {
			t.Fatalf("Hugo sees a ticket he shouldn't: %v", item.Ticket)
		}
		if item.Kind == models.FeedKindReview && item.Review.AuthorID != hugo.ID() {
			t.Fatalf("Hugo sees a review he shouldn't: %v", item.Review)
		}
	}
}

