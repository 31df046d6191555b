// Package httpclient invokes downstream REST services on behalf of a web backend.
//
// A Client issues GET, POST, PUT, PATCH and DELETE calls described by a Request.
// Write verbs forward the bearer token of the inbound request (see
// WithInboundRequest); GET forwards it only with Request.ForwardInboundToken.
// The client retries flagged GET calls on 404 and connection errors using a RetryPolicy,
// and translates failures into typed errors:
//
//   - transport failures, timeouts and open circuits become external-service errors
//   - GET 5xx becomes an external-service error wrapping an HTTP error
//   - GET 4xx is returned as an HTTP error
//   - 4xx/5xx on POST, PUT, PATCH and DELETE become external-service errors
//
// Use errors.Is(err, ErrExternalService) or IsExternalServiceError to detect
// an unavailable dependency and StatusCodeOf to read the downstream status.
//
// Example:
//
//	client := httpclient.NewBuilder(log).
//		WithTimeout(10 * time.Second).
//		Build()
//
//	resp, err := client.Get(ctx, &httpclient.Request{
//		URL:            "https://api.example.com/accounts/42",
//		RetryOnFailure: true,
//	})
package httpclient
