// Package http implements the HTTP handlers of the SRI Pulse API. It is a
// thin layer between chi transport and the service layer: handlers parse
// and validate requests, delegate to services, and format responses.
//
// # Request Flow
//
//	HTTP Request → Chi Router → Middleware → Handler → Service → Analyzer
//	                                              ↓
//	HTTP Response ← Handler ← Service Response ←─┘
//
// # Error Handling
//
// Every failure is answered as an RFC 7807 problem document through
// errors.ErrorHandler, which maps the AppError taxonomy and the domain
// sentinels (ErrNoData, ErrOperationNotFound, ...) to HTTP statuses:
//
//	{
//	    "type": "/errors/data/empty",
//	    "title": "No Data",
//	    "status": 404,
//	    "detail": "No sales records have been loaded yet",
//	    "instance": "/api/v1/sales/provinces"
//	}
//
// Handlers therefore never write status codes for failures themselves;
// they pass the error to the handler's ErrorHandler and return.
package http
