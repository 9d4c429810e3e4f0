package api

import (
	"net/http"

	"github.com/hackgods/treatment-booking/internal/user"
)

func listUsersHandler(svc *user.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := svc.List(r.Context())
		if err != nil {
			handleUserError(w, err)
			return
		}

		resp := make([]UserResponse, 0, len(users))
		for _, u := range users {
			resp = append(resp, toUserResponse(u))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// upsertUserHandler is public: it is how clients obtain a token.
func upsertUserHandler(svc *user.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profile := map[string]any{}
		if r.ContentLength != 0 {
			if err := decodeJSON(w, r, &profile); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
				return
			}
		}

		res, token, err := svc.UpsertAndIssueToken(r.Context(), pathParam(r, "email"), profile)
		if err != nil {
			handleUserError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, UpsertUserResponse{
			Result: UpsertUserResult{Email: res.Email, Created: res.Created},
			Token:  token,
		})
	}
}

func promoteUserHandler(svc *user.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email := pathParam(r, "email")
		if err := svc.PromoteToAdmin(r.Context(), email); err != nil {
			handleUserError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, RoleResponse{Email: email, Role: user.RoleAdmin})
	}
}

func deleteUserHandler(svc *user.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Remove(r.Context(), pathParam(r, "email")); err != nil {
			handleUserError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, DeletedResponse{Deleted: true})
	}
}

func isAdminHandler(svc *user.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		admin, err := svc.IsAdmin(r.Context(), pathParam(r, "email"))
		if err != nil {
			handleUserError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, AdminResponse{Admin: admin})
	}
}
