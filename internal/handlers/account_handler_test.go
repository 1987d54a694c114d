package handlers

import (
	"net/http"
	"testing"

	"famhealth/internal/models"
	"famhealth/internal/service"
)

func TestActiveMemberScenario(t *testing.T) {
	env := newAPIEnv(t, 100)
	tokens := env.signIn(t, "ada@example.com")
	token := tokens.AccessToken
	self := models.SelfMember(tokens.User.ID)

	rec := env.do(t, http.MethodPost, "/api/members", token, map[string]string{"name": "Mom", "relationship": "mother"})
	expectStatus(t, rec, http.StatusCreated)
	var mom models.FamilyMember
	decodeBody(t, rec, &mom)

	rec = env.do(t, http.MethodPut, "/api/active-member", token, map[string]string{"id": mom.ID})
	expectStatus(t, rec, http.StatusOK)

	rec = env.do(t, http.MethodGet, "/api/active-member", token, nil)
	expectStatus(t, rec, http.StatusOK)
	var selection activeMemberResponse
	decodeBody(t, rec, &selection)
	want := models.ActiveMember{ID: mom.ID, Type: models.MemberTypeFamily, Label: "Mom"}
	if selection.ActiveMember != want {
		t.Fatalf("active member = %+v, want %+v", selection.ActiveMember, want)
	}
	if len(selection.Members) != 2 || selection.Members[0] != self {
		t.Errorf("selectable = %+v", selection.Members)
	}

	// An empty list is a normal answer with an empty-state message.
	rec = env.do(t, http.MethodGet, "/api/diagnoses", token, nil)
	expectStatus(t, rec, http.StatusOK)
	var empty service.RecordList[models.Diagnosis]
	decodeBody(t, rec, &empty)
	if len(empty.Items) != 0 || empty.EmptyMessage != "No diagnoses recorded for Mom yet." {
		t.Errorf("empty list = %+v", empty)
	}

	// A refresh must not clobber the manual selection.
	rec = env.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": tokens.RefreshToken})
	expectStatus(t, rec, http.StatusOK)
	rec = env.do(t, http.MethodGet, "/api/session", token, nil)
	var sess sessionResponse
	decodeBody(t, rec, &sess)
	if sess.ActiveMember == nil || *sess.ActiveMember != want {
		t.Errorf("after refresh active member = %+v", sess.ActiveMember)
	}

	rec = env.do(t, http.MethodDelete, "/api/members/"+mom.ID, token, nil)
	expectStatus(t, rec, http.StatusNoContent)

	rec = env.do(t, http.MethodGet, "/api/session", token, nil)
	sess = sessionResponse{}
	decodeBody(t, rec, &sess)
	if sess.ActiveMember == nil || *sess.ActiveMember != self {
		t.Errorf("after delete active member = %+v, want %+v", sess.ActiveMember, self)
	}
}

func TestSetActiveMemberRejectsOtherAccounts(t *testing.T) {
	env := newAPIEnv(t, 100)
	ada := env.signIn(t, "ada@example.com").AccessToken
	eve := env.signIn(t, "eve@example.com").AccessToken

	rec := env.do(t, http.MethodPost, "/api/members", ada, map[string]string{"name": "Mom"})
	var mom models.FamilyMember
	decodeBody(t, rec, &mom)

	rec = env.do(t, http.MethodPut, "/api/active-member", eve, map[string]string{"id": mom.ID})
	expectStatus(t, rec, http.StatusNotFound)

	rec = env.do(t, http.MethodGet, "/api/members/"+mom.ID, eve, nil)
	expectStatus(t, rec, http.StatusNotFound)
}

func TestOnboardingGate(t *testing.T) {
	env := newAPIEnv(t, 100)
	token := env.signIn(t, "ada@example.com").AccessToken

	step := func() service.OnboardingStep {
		rec := env.do(t, http.MethodGet, "/api/onboarding", token, nil)
		expectStatus(t, rec, http.StatusOK)
		var body map[string]service.OnboardingStep
		decodeBody(t, rec, &body)
		return body["step"]
	}

	if got := step(); got != service.StepWalkthrough {
		t.Fatalf("step = %q, want walkthrough", got)
	}
	expectStatus(t, env.do(t, http.MethodPost, "/api/onboarding/walkthrough", token, nil), http.StatusOK)
	if got := step(); got != service.StepProfile {
		t.Fatalf("step = %q, want profile", got)
	}

	rec := env.do(t, http.MethodPut, "/api/profile", token, map[string]string{"full_name": "Ada"})
	expectStatus(t, rec, http.StatusBadRequest)
	var verr errorResponse
	decodeBody(t, rec, &verr)
	if verr.Field != "date_of_birth" {
		t.Errorf("validation field = %q", verr.Field)
	}

	rec = env.do(t, http.MethodPut, "/api/profile", token, map[string]string{"full_name": "Ada", "date_of_birth": "1985-12-10"})
	expectStatus(t, rec, http.StatusOK)
	if got := step(); got != service.StepReady {
		t.Fatalf("step = %q, want ready", got)
	}
}
