// Package http implements the HTTP handlers of the Plate Pulse dashboard.
// It is a thin layer between the chi router and the services, keeping
// handlers focused on HTTP concerns.
//
// # Architecture Principles
//
// Handlers in this package follow these principles:
//
//	1. Thin handlers - request parsing and response formatting only
//	2. Services behind small interfaces (AuthService, DatasetService) so tests use mocks
//	3. Error transformation through the shared ErrorHandler
//	4. No business logic - normalization and views live in the service layer
//
// # Surfaces
//
// Two surfaces share the same services:
//
//	JSON API   /api/auth/*, /api/dataset/*, /api/charts/{name}, /api/health/*
//	HTML       /login, /logout, /pages/{page}, /upload, /charts/{name}
//
// Dashboard pages are rendered from embedded html/template files. Chart pages
// embed /charts/{name}, a standalone go-echarts document, in an iframe.
//
// # Error Handling
//
// API errors follow RFC 7807 Problem Details:
//
//	{
//	    "type": "/errors/dataset/missing-column",
//	    "title": "Missing Required Column",
//	    "status": 422,
//	    "detail": "missing required column: aggregate_rating (expected one of: rate, aggregate_rating)",
//	    "instance": "/api/dataset",
//	    "missing_columns": ["aggregate_rating"]
//	}
//
// HTML routes map the same problems to an inline message on the page. A chart
// whose optional column is missing is not an error: the JSON view carries a
// "warning" field and the HTML chart frame shows the warning text.
//
// # Testing
//
// Handlers are tested with httptest against testify mocks of the service
// interfaces.
package http
