// Package bearer assembles the authenticated request pipeline: a credential
// store, the single-flight refresh coordinator, the session invalidator and the
// retrying http.RoundTripper, configured from Config.
//
// Example:
//
//	client, err := bearer.New(ctx, &bearer.Config{BaseURL: "https://api.example.com/api/"},
//		bearer.WithListener(session.ListenerFunc(func(ctx context.Context, cause error) {
//			// redirect to login
//		})))
//	if err != nil {
//		return err
//	}
//	if _, err = client.Session.Login(ctx, email, password); err != nil {
//		return err
//	}
//	resp, err := client.HTTP.Get(client.Endpoint("stocks/"))
package bearer
