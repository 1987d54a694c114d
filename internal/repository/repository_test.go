package repository

import (
	"testing"
	"time"

	"famhealth/internal/database"
	"famhealth/internal/database/dbtest"
	"famhealth/internal/models"
)

func newUser(t *testing.T, db *database.DB, email string) *models.User {
	t.Helper()
	user, err := NewUserRepository(db).CreateUser(email, "", "", "")
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	return user
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestUserRepository(t *testing.T) {
	db := dbtest.New(t)
	repo := NewUserRepository(db)

	user := newUser(t, db, "ada@example.com")

	got, err := repo.GetUserByEmail("ada@example.com")
	if err != nil || got == nil {
		t.Fatalf("GetUserByEmail() = %v, %v", got, err)
	}
	if got.ID != user.ID {
		t.Errorf("GetUserByEmail() id = %q, want %q", got.ID, user.ID)
	}

	missing, err := repo.GetUserByEmail("nobody@example.com")
	if err != nil || missing != nil {
		t.Errorf("GetUserByEmail(missing) = %v, %v; want nil, nil", missing, err)
	}

	if err := repo.LinkOAuthProvider(user.ID, "google", "sub-1"); err != nil {
		t.Fatalf("LinkOAuthProvider() error = %v", err)
	}
	if err := repo.LinkOAuthProvider(user.ID, "apple", "sub-2"); err == nil {
		t.Error("second LinkOAuthProvider() should fail")
	}
	linked, err := repo.GetUserByOAuth("google", "sub-1")
	if err != nil || linked == nil || linked.ID != user.ID {
		t.Errorf("GetUserByOAuth() = %v, %v", linked, err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	db := dbtest.New(t)
	repo := NewUserRepository(db)
	user := newUser(t, db, "ada@example.com")

	if _, err := repo.CreateSession("live", user.ID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if _, err := repo.CreateSession("stale", user.ID, time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	active, err := repo.ListActiveSessions()
	if err != nil {
		t.Fatalf("ListActiveSessions() error = %v", err)
	}
	if len(active) != 1 || active[0].ID != "live" {
		t.Errorf("ListActiveSessions() = %+v, want only live", active)
	}

	newExpiry := time.Now().Add(48 * time.Hour).UTC()
	if err := repo.ExtendSession("live", newExpiry); err != nil {
		t.Fatalf("ExtendSession() error = %v", err)
	}
	s, err := repo.GetSession("live")
	if err != nil || s == nil {
		t.Fatalf("GetSession() = %v, %v", s, err)
	}
	if s.ExpiresAt.Sub(newExpiry).Abs() > time.Second {
		t.Errorf("ExpiresAt = %v, want %v", s.ExpiresAt, newExpiry)
	}

	expired, err := repo.DeleteExpiredSessions()
	if err != nil {
		t.Fatalf("DeleteExpiredSessions() error = %v", err)
	}
	if len(expired) != 1 || expired[0].ID != "stale" {
		t.Errorf("DeleteExpiredSessions() = %+v, want stale", expired)
	}

	if err := repo.DeleteSession("live"); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	if s, _ := repo.GetSession("live"); s != nil {
		t.Error("session still present after delete")
	}
}

func TestCodeRepository(t *testing.T) {
	db := dbtest.New(t)
	repo := NewCodeRepository(db)

	if _, err := repo.CreateCode("ada@example.com", "old-hash", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("CreateCode() error = %v", err)
	}
	latest, err := repo.CreateCode("ada@example.com", "new-hash", time.Now().Add(10*time.Minute))
	if err != nil {
		t.Fatalf("CreateCode() error = %v", err)
	}

	if n, err := repo.CountCodesSince("ada@example.com", time.Now().Add(-time.Hour)); err != nil || n != 2 {
		t.Errorf("CountCodesSince(hour ago) = %d, %v; want 2", n, err)
	}
	if n, err := repo.CountCodesSince("ada@example.com", time.Now().Add(time.Minute)); err != nil || n != 0 {
		t.Errorf("CountCodesSince(future) = %d, %v; want 0", n, err)
	}

	got, err := repo.GetLatestCode("ada@example.com")
	if err != nil || got == nil {
		t.Fatalf("GetLatestCode() = %v, %v", got, err)
	}
	if got.ID != latest.ID || got.CodeHash != "new-hash" {
		t.Errorf("GetLatestCode() = %+v, want id %d", got, latest.ID)
	}

	for i := 0; i < 2; i++ {
		if ok, err := repo.ClaimAttempt(got.ID, 2); err != nil || !ok {
			t.Fatalf("ClaimAttempt() #%d = %v, %v; want true", i+1, ok, err)
		}
	}
	if ok, err := repo.ClaimAttempt(got.ID, 2); err != nil || ok {
		t.Fatalf("ClaimAttempt() past max = %v, %v; want false", ok, err)
	}
	ok, err := repo.MarkUsed(got.ID)
	if err != nil || !ok {
		t.Fatalf("MarkUsed() = %v, %v", ok, err)
	}
	if ok, _ := repo.MarkUsed(got.ID); ok {
		t.Error("second MarkUsed() should report false")
	}

	got, _ = repo.GetLatestCode("ada@example.com")
	if ok, _ := repo.ClaimAttempt(got.ID, 5); ok {
		t.Error("ClaimAttempt() on a used code should report false")
	}
	if got.Attempts != 2 || !got.IsUsed() {
		t.Errorf("code after use = %+v", got)
	}

	n, err := repo.DeleteExpiredCodes()
	if err != nil || n != 1 {
		t.Errorf("DeleteExpiredCodes() = %d, %v; want 1", n, err)
	}
}

func TestProfileRepository(t *testing.T) {
	db := dbtest.New(t)
	repo := NewProfileRepository(db)
	user := newUser(t, db, "ada@example.com")

	if p, err := repo.GetProfile(user.ID); err != nil || p != nil {
		t.Fatalf("GetProfile() before ensure = %v, %v", p, err)
	}
	for i := 0; i < 2; i++ {
		if err := repo.EnsureProfile(user.ID); err != nil {
			t.Fatalf("EnsureProfile() error = %v", err)
		}
	}

	p, err := repo.GetProfile(user.ID)
	if err != nil || p == nil {
		t.Fatalf("GetProfile() = %v, %v", p, err)
	}
	if p.IsComplete() {
		t.Error("fresh profile should be incomplete")
	}

	dob := day("1985-04-12")
	p.FullName = "Ada Lovelace"
	p.DateOfBirth = &dob
	if err := repo.UpdateProfile(p); err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	p, _ = repo.GetProfile(user.ID)
	if !p.IsComplete() || !p.DateOfBirth.Equal(dob) {
		t.Errorf("profile after update = %+v", p)
	}
}

func TestFamilyRepositoryDeleteCascades(t *testing.T) {
	db := dbtest.New(t)
	family := NewFamilyRepository(db)
	diagnoses := NewDiagnosisRepository(db)
	docs := NewDocumentRepository(db)
	user := newUser(t, db, "ada@example.com")

	mom := &models.FamilyMember{UserID: user.ID, Name: "Mom", Relationship: "mother"}
	if err := family.CreateMember(mom); err != nil {
		t.Fatalf("CreateMember() error = %v", err)
	}
	if err := family.CreateMember(&models.FamilyMember{UserID: user.ID, Name: "Brother"}); err != nil {
		t.Fatalf("CreateMember() error = %v", err)
	}

	members, err := family.ListMembers(user.ID)
	if err != nil {
		t.Fatalf("ListMembers() error = %v", err)
	}
	if len(members) != 2 || members[0].Name != "Brother" || members[1].Name != "Mom" {
		t.Errorf("ListMembers() = %+v, want ordered by name", members)
	}

	if err := diagnoses.Create(&models.Diagnosis{OwnerID: user.ID, MemberID: mom.ID, Condition: "Asthma", DiagnosedOn: day("2020-01-01"), Status: models.DiagnosisChronic}); err != nil {
		t.Fatalf("Create diagnosis error = %v", err)
	}
	if err := diagnoses.Create(&models.Diagnosis{OwnerID: user.ID, MemberID: user.ID, Condition: "Flu", DiagnosedOn: day("2021-01-01"), Status: models.DiagnosisResolved}); err != nil {
		t.Fatalf("Create diagnosis error = %v", err)
	}
	if err := docs.Create(&models.Document{OwnerID: user.ID, MemberID: mom.ID, Title: "X-ray", DocumentDate: day("2020-02-02"), FilePath: mom.ID + "/1.png"}); err != nil {
		t.Fatalf("Create document error = %v", err)
	}

	paths, err := family.DeleteMember(user.ID, mom.ID)
	if err != nil {
		t.Fatalf("DeleteMember() error = %v", err)
	}
	if len(paths) != 1 || paths[0] != mom.ID+"/1.png" {
		t.Errorf("DeleteMember() paths = %v", paths)
	}

	if m, _ := family.GetMember(mom.ID); m != nil {
		t.Error("member still present after delete")
	}
	if rows, _ := diagnoses.ListByMember(user.ID, mom.ID); len(rows) != 0 {
		t.Errorf("member diagnoses survived delete: %+v", rows)
	}
	if rows, _ := diagnoses.ListByMember(user.ID, user.ID); len(rows) != 1 {
		t.Errorf("self diagnoses = %+v, want 1", rows)
	}

	other := newUser(t, db, "other@example.com")
	brother := members[0]
	if _, err := family.DeleteMember(other.ID, brother.ID); err == nil {
		t.Error("deleting another account's member should fail")
	}
}

func TestRecordListOrdering(t *testing.T) {
	db := dbtest.New(t)
	user := newUser(t, db, "ada@example.com")
	visits := NewVisitRepository(db)
	tests := NewTestRepository(db)

	for _, date := range []string{"2023-05-01", "2024-01-15", "2022-12-31"} {
		if err := visits.Create(&models.Visit{OwnerID: user.ID, MemberID: user.ID, VisitDate: day(date), Reason: date}); err != nil {
			t.Fatalf("Create visit error = %v", err)
		}
		if err := tests.Create(&models.MedicalTest{OwnerID: user.ID, MemberID: user.ID, TestName: "HbA1c", TestDate: day(date)}); err != nil {
			t.Fatalf("Create test error = %v", err)
		}
	}

	gotVisits, err := visits.ListByMember(user.ID, user.ID)
	if err != nil {
		t.Fatalf("ListByMember() error = %v", err)
	}
	wantOrder := []string{"2024-01-15", "2023-05-01", "2022-12-31"}
	for i, v := range gotVisits {
		if v.Reason != wantOrder[i] {
			t.Errorf("visit %d = %s, want %s", i, v.Reason, wantOrder[i])
		}
	}

	gotTests, _ := tests.ListByMember(user.ID, user.ID)
	if len(gotTests) != 3 || !gotTests[0].TestDate.Equal(day("2024-01-15")) {
		t.Errorf("tests not ordered by date: %+v", gotTests)
	}

	empty, err := visits.ListByMember(user.ID, "nobody")
	if err != nil {
		t.Fatalf("ListByMember(empty) error = %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("empty list = %#v, want non-nil empty slice", empty)
	}
}

func TestRecordUpdateIsScopedToOwner(t *testing.T) {
	db := dbtest.New(t)
	owner := newUser(t, db, "ada@example.com")
	intruder := newUser(t, db, "eve@example.com")
	repo := NewDiagnosisRepository(db)

	d := &models.Diagnosis{OwnerID: owner.ID, MemberID: owner.ID, Condition: "Asthma", DiagnosedOn: day("2020-01-01"), Status: models.DiagnosisActive}
	if err := repo.Create(d); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	forged := *d
	forged.OwnerID = intruder.ID
	forged.Condition = "Tampered"
	if err := repo.Update(&forged); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := repo.Delete(intruder.ID, d.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	got, err := repo.GetByID(d.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID() = %v, %v", got, err)
	}
	if got.Condition != "Asthma" {
		t.Errorf("condition = %q, update from another owner leaked", got.Condition)
	}
}

func TestSettingsRepository(t *testing.T) {
	db := dbtest.New(t)
	repo := NewSettingsRepository(db)

	shown, err := repo.IsOnboardingShown("u1")
	if err != nil || shown {
		t.Fatalf("IsOnboardingShown() = %v, %v; want false", shown, err)
	}
	for i := 0; i < 2; i++ {
		if err := repo.MarkOnboardingShown("u1"); err != nil {
			t.Fatalf("MarkOnboardingShown() error = %v", err)
		}
	}
	if shown, _ := repo.IsOnboardingShown("u1"); !shown {
		t.Error("IsOnboardingShown() = false after marking")
	}
	if shown, _ := repo.IsOnboardingShown("u2"); shown {
		t.Error("flag leaked to another user")
	}
}
