package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"parktime/services"
)

// redirectErr sends the user back to base with a human-readable error
// message derived from the service failure.
func redirectErr(w http.ResponseWriter, r *http.Request, base string, err error) {
	http.Redirect(w, r, base+"?error="+url.QueryEscape(errMessage(err)), http.StatusSeeOther)
}

func redirectOK(w http.ResponseWriter, r *http.Request, base, msg string) {
	http.Redirect(w, r, base+"?success="+url.QueryEscape(msg), http.StatusSeeOther)
}

// errMessage maps typed service failures to messages safe to show.
// Persistence errors stay generic; their detail goes to the log only.
func errMessage(err error) string {
	var validation *services.ValidationError
	var authz *services.AuthorizationError
	var conflict *services.ConflictError
	var notFound *services.NotFoundError

	switch {
	case errors.As(err, &validation):
		return validation.Error()
	case errors.As(err, &authz):
		return "You do not have permission for that"
	case errors.As(err, &conflict):
		return conflict.Error()
	case errors.As(err, &notFound):
		return notFound.Error()
	default:
		return "Something went wrong, please try again"
	}
}

func parseID(s string) (uint, bool) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func parseDate(s string) (time.Time, bool) {
	date, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}
