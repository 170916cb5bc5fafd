// Package http serves the cloudpad file API.
//
// The API exposes list, get, put, delete and rename operations on named
// blobs in a cloudpad.Bucket, guarded by a single shared access token.
//
// # Features
//
//   - Header token authentication (X-API-TOKEN by default)
//   - Direct download links that carry the token in the first path segment
//   - Custom metadata through X-Meta-* headers
//   - Upload size limit with 413 responses
//   - JSON error responses
//   - Configurable CORS support
//   - Optional Prometheus metrics
//
// # Routes
//
//	GET    /api/files           list all objects as [{key, size, uploaded}]
//	POST   /api/files/rename    {"oldKey": "...", "newKey": "..."}
//	GET    /api/files/{key...}  object content
//	PUT    /api/files/{key...}  store the request body
//	DELETE /api/files/{key...}  remove the object
//	GET    /{token}/{key...}    object content as an attachment
//
// The first path segment "api" is never read as a token. Unknown paths and
// known paths with another method get a JSON 404.
//
// # Authentication
//
// AuthMiddleware takes a TokenVerifier and a TokenExtractor. HeaderToken and
// PathToken are the two extractors used by the router:
//
//	store, err := keybackend.NewTokenStore(keybackend.TokenConfig{Token: "s3cr3t"})
//	if err != nil {
//	    return err
//	}
//	router.Use(http.AuthMiddleware(store, http.HeaderToken("X-API-TOKEN")))
//
// # Usage
//
//	service, err := cloudpad.NewFileService(bucket)
//	if err != nil {
//	    return err
//	}
//	handlerCfg := http.HandlerConfig{
//	    Verifier:      store,
//	    MaxUploadSize: 10 << 20,
//	    Metrics:       http.NewMetrics(),
//	}
//	handler := http.NewHandler(&handlerCfg, service)
//	http.ListenAndServe(":8787", handler.Router())
//
// # Errors
//
// Errors are written as {"error": "<code>", "message": "<text>"}. HandleError
// maps cloudpad.ErrInvalidInput to 400, cloudpad.ErrUnauthorized to 401,
// cloudpad.ErrNotFound to 404, cloudpad.ErrTooLarge to 413 and everything
// else to 500.
package http
