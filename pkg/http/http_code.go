// Copyright 2025 Gauntlet Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

var (
	Failed                        = failed(500, "Request failed")
	RequestParameterParsingFailed = failed(5001, "Request parameter parsing failed")

	// BadRequest 400
	BadRequest = failed(4000, "Bad request")
	NotFound   = failed(4004, "Not found")

	// Forbidden 403
	Forbidden        = failed(4030, "Forbidden")
	PermissionDenied = failed(4031, "Permission denied")

	InternalError = failed(5000, "Internal error, please contact the administrator")

	ChallengeNotFound  = failed(4101, "Challenge does not exist")
	InviteNotFound     = failed(4102, "Invite does not exist")
	InviteTokenInvalid = failed(4103, "Invite token is invalid")

	InviteNotActive         = failed(4111, "Invite is not active")
	StartWindowExpired      = failed(4112, "Start window expired")
	AssessmentWindowExpired = failed(4113, "Assessment window expired")
	InviteStateInvalid      = failed(4114, "Invite is not in a valid state for this operation")

	RepoProvisioningFailed = failed(4121, "Candidate repository provisioning failed")
	FinalCommitUnavailable = failed(4122, "Could not read the final commit of the candidate repository")
	EmailDeliveryFailed    = failed(4131, "Email delivery failed")
)

var (
	Success = success(200, "Request Success")
)

func failed(code int, msg string) *Response {
	return &Response{
		Code:   code,
		Msg:    msg,
		Detail: nil,
	}
}

func success(code int, msg string) *Response {
	return &Response{
		Code:   code,
		Msg:    msg,
		Detail: nil,
	}
}
