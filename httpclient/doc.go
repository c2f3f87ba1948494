// Package httpclient is the HTTP transport shared by the provider adapters.
//
// An Adapter owns one connection pool and serves blocking requests (Do) and
// streaming requests (DoStream). Non-2xx answers come back as *Error values
// classified by status; Config.MapError lets the caller translate them into
// its own error taxonomy before the retry policy inspects them.
//
//	client, err := httpclient.New(httpclient.Config{
//	    Name:    "openai",
//	    BaseURL: "https://api.openai.com/v1",
//	    Auth:    httpclient.BearerAuth(key),
//	    Retry:   httpclient.DefaultRetryConfig(),
//	})
//	resp, err := client.Do(ctx, httpclient.Request{Path: "/chat/completions", Body: payload})
package httpclient
