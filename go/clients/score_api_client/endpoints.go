package score_api_client

const (
	// API Endpoints
	SessionsEndpoint        = "/api/sessions"
	SessionByCodeEndpoint   = "/api/sessions/by-code/%s"
	SessionPlayersEndpoint  = "/api/sessions/%s/players"
	SessionScoresEndpoint   = "/api/sessions/%s/scores"
	SessionOrderEndpoint    = "/api/sessions/%s/order"
	SessionDealerEndpoint   = "/api/sessions/%s/dealer"
	SessionFinalizeEndpoint = "/api/sessions/%s/finalize"
)
