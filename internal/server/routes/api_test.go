package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/drydock-platform/drydock/internal/entity"
	"github.com/drydock-platform/drydock/internal/usecase"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type fakeWhitelist struct{ got *entity.OrgRecord }

func (f *fakeWhitelist) Execute(ctx context.Context, org *entity.OrgRecord) error {
	f.got = org
	return nil
}

func whitelistServer(fake *fakeWhitelist) *echo.Echo {
	injector := do.New()
	do.ProvideValue[usecase.WhitelistOrgUsecase](injector, fake)
	e := echo.New()
	RegisterAPI(injector, e)
	return e
}

func TestWhitelistOrgUsesPathParam(t *testing.T) {
	fake := &fakeWhitelist{}
	e := whitelistServer(fake)

	req := httptest.NewRequest(http.MethodPut, "/api/orgs/42",
		strings.NewReader(`{"name":"acme","allowed":true}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d; want 204", rec.Code)
	}
	if fake.got == nil || fake.got.OrgID != 42 || fake.got.Name != "acme" || !fake.got.Allowed {
		t.Errorf("record = %+v; want org 42, name acme, allowed", fake.got)
	}
}

func TestWhitelistOrgRejectsNonNumericID(t *testing.T) {
	fake := &fakeWhitelist{}
	e := whitelistServer(fake)

	req := httptest.NewRequest(http.MethodPut, "/api/orgs/acme",
		strings.NewReader(`{"name":"acme","allowed":true}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d; want 400", rec.Code)
	}
	if fake.got != nil {
		t.Errorf("usecase invoked with %+v; want no call", fake.got)
	}
}
