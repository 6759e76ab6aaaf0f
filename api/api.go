package api

import (
	"encoding/json"
	"fmt"

	"github.com/0xcafe-io/iz"
	"github.com/otieno-dev/chama_tracker/internal/auth"
	"github.com/otieno-dev/chama_tracker/internal/chama"
)

type Api struct {
	Service *chama.ChamaTracker
	Guard   *auth.SessionGuard
	Ledger  *chama.ContributionLedger
}

func NewApi(service *chama.ChamaTracker, guard *auth.SessionGuard) *Api {
	return &Api{
		Service: service,
		Guard:   guard,
		Ledger:  chama.NewContributionLedger(),
	}
}

// authorize resolves the Authorization header to a user id. Every
// authenticated request also counts as activity for the idle guard.
func (api *Api) authorize(r *iz.Request) (string, string, iz.Responder) {
	userId, token, errResp := api.authorizeReadOnly(r)
	if errResp != nil {
		return "", "", errResp
	}

	if api.Guard != nil {
		api.Guard.Touch(token)
	}
	return userId, token, nil
}

// authorizeReadOnly validates the session without recording activity, so
// status reads cannot reset the idle countdown they report on.
func (api *Api) authorizeReadOnly(r *iz.Request) (string, string, iz.Responder) {
	token := r.Header.Get("Authorization")
	if token == "" {
		msg := "authorization failed: Authorization header is required."
		return "", "", iz.Respond().Status(401).Text(msg)
	}

	userId, err := api.Service.CheckSession(r.Context(), token)
	if err != nil {
		msg := fmt.Sprintf("authorization failed: %s", err.Error())
		return "", "", iz.Respond().Status(401).Text(msg)
	}
	return userId, token, nil
}

func (api *Api) SaveUserHandler(r *iz.Request) iz.Responder {
	var newUserReq SaveUserRequest
	if err := json.NewDecoder(r.Body).Decode(&newUserReq); err != nil {
		msg := fmt.Sprintf("invalid request body: %s", err.Error())
		return iz.Respond().Status(400).Text(msg)
	}

	newUser := auth.NewUser{
		UserName:      newUserReq.UserName,
		FullName:      newUserReq.FullName,
		PasswordPlain: newUserReq.Password,
		Email:         newUserReq.Email,
		Phone:         newUserReq.Phone,
	}

	if err := newUser.ValidateUserFields(); err != nil {
		return iz.Respond().Status(httpStatusFromError(err)).Text(err.Error())
	}

	token, err := api.Service.RegisterMember(r.Context(), newUser)
	if err != nil {
		msg := fmt.Sprintf("registration failed: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	resp := UserCreatedResponse{
		Message: "Registration Completed",
		Token:   token,
	}
	return iz.Respond().Status(201).JSON(resp)
}

func (api *Api) LoginUserHandler(r *iz.Request) iz.Responder {
	var loginReq UserLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&loginReq); err != nil {
		msg := fmt.Sprintf("invalid request body: %s", err.Error())
		return iz.Respond().Status(400).Text(msg)
	}

	credentials := auth.UserCredentialsPure{
		UserName:      loginReq.UserName,
		PasswordPlain: loginReq.Password,
	}

	token, err := api.Service.GenerateSession(r.Context(), credentials)
	if err != nil {
		msg := fmt.Sprintf("login failed: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	resp := LoginResponse{
		Message: "Login Completed",
		Token:   token,
	}
	return iz.Respond().Status(200).JSON(resp)
}

func (api *Api) LogoutUserHandler(r *iz.Request) iz.Responder {
	token := r.Header.Get("Authorization")
	if token == "" {
		msg := "authorization failed: Authorization header is required."
		return iz.Respond().Status(401).Text(msg)
	}

	if err := api.Service.LogoutUser(r.Context(), token); err != nil {
		msg := fmt.Sprintf("logout failed: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}
	if api.Guard != nil {
		api.Guard.Forget(token)
	}

	return iz.Respond().Status(200).Text("logout completed")
}

func (api *Api) ResetPasswordHandler(r *iz.Request) iz.Responder {
	var resetReq ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&resetReq); err != nil {
		msg := fmt.Sprintf("invalid request body: %s", err.Error())
		return iz.Respond().Status(400).Text(msg)
	}

	req := auth.ResetPasswordRequest{
		UserName:         resetReq.UserName,
		Email:            resetReq.Email,
		NewPasswordPlain: resetReq.NewPassword,
	}

	if err := api.Service.ResetPassword(r.Context(), req); err != nil {
		msg := fmt.Sprintf("password reset failed: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}
	return iz.Respond().Status(200).Text("password reset completed")
}

func (api *Api) CheckToken(r *iz.Request) iz.Responder {
	_, token, errResp := api.authorizeReadOnly(r)
	if errResp != nil {
		return errResp
	}

	resp := SessionStateResponse{State: api.Guard.StateOf(token).String()}
	return iz.Respond().Status(200).JSON(resp)
}

func (api *Api) GetAccountInfo(r *iz.Request) iz.Responder {
	userId, _, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	info, err := api.Service.GetAccountInfo(r.Context(), userId)
	if err != nil {
		msg := fmt.Sprintf("failed to get account info: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	resp := AccountInfoResponse{
		Fullname: info.Fullname,
		Email:    info.Email,
		Phone:    info.Phone,
		Role:     info.Role,
		JoinedAt: info.JoinedAt,
	}
	return iz.Respond().Status(200).JSON(resp)
}

func (api *Api) UpdateProfileHandler(r *iz.Request) iz.Responder {
	userId, _, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	var updateReq UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&updateReq); err != nil {
		msg := fmt.Sprintf("invalid request body: %s", err.Error())
		return iz.Respond().Status(400).Text(msg)
	}

	fields := chama.UpdateMemberRequest{
		NewName:  updateReq.FullName,
		NewPhone: updateReq.Phone,
		NewEmail: updateReq.Email,
	}

	member, err := api.Service.UpdateProfile(r.Context(), userId, fields)
	if err != nil {
		msg := fmt.Sprintf("failed to update profile: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}
	return iz.Respond().Status(200).JSON(MemberToHttp(member))
}

func (api *Api) ListMembersHandler(r *iz.Request) iz.Responder {
	_, _, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	members, err := api.Service.ListMembers(r.Context())
	if err != nil {
		msg := fmt.Sprintf("failed to get members: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	var resp ListMembersResponse
	resp.Members = make([]MemberItem, 0, len(members))
	for _, member := range members {
		resp.Members = append(resp.Members, MemberToHttp(member))
	}
	return iz.Respond().Status(200).JSON(resp)
}

func (api *Api) AddMemberHandler(r *iz.Request) iz.Responder {
	userId, _, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	var memberReq NewMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&memberReq); err != nil {
		msg := fmt.Sprintf("invalid request body: %s", err.Error())
		return iz.Respond().Status(400).Text(msg)
	}

	req := chama.NewMemberRequest{
		FullName: memberReq.FullName,
		Phone:    memberReq.Phone,
		Email:    memberReq.Email,
	}

	member, err := api.Service.AddMember(r.Context(), userId, req)
	if err != nil {
		msg := fmt.Sprintf("failed to add member: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}
	return iz.Respond().Status(201).JSON(MemberToHttp(member))
}
