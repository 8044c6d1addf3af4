/*
General-purpose client for the portal "Web API" (the OData-style `/_api/` endpoints) and related portal endpoints.

[APIClient] wraps an [http.Client] and turns an [APIRequest] in to a single authenticated exchange: it fetches a fresh anti-forgery token from a [TokenSource], attaches it under the `__RequestVerificationToken` header, issues the request, and runs successful responses through a [SessionValidator] to catch requests which were silently bounced to a sign-in page. The outcome is either a [Response] or one of three error types, which callers are expected to branch on with [errors.As] or [errors.Is]:

- [TokenError] ([ErrTokenUnavailable]): the token could not be fetched; no request was sent.
- [TransportError] ([ErrTransport]): network failure or non-2xx status. Carries the status code and raw response, when there is one.
- [SessionError] ([ErrSessionInvalid]): the response looked successful but the portal session has expired. Callers usually re-authenticate.

The client does not retry or cache anything. Each call fetches its own token, and the caller's [context.Context] is the only cancellation or deadline mechanism. Retry policy belongs to the [http.Client] the caller supplies (see the robusthttp package).

[ResolveFilename] recovers a download file name from a `Content-Disposition` header, including the base64 "encoded-word" form the portal uses for non-ASCII names.

Typed helpers for entity CRUD, file columns and the legacy JSON endpoint live in the sibling webapi package.
*/
package client
