package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Minimal browser page for poking the auth API without a frontend build.
var landingPageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8" />
<meta name="viewport" content="width=device-width, initial-scale=1.0" />
<title>Trellis Auth</title>
<style>
body { font-family: system-ui, sans-serif; margin: 0 auto; max-width: 480px; padding: 40px 16px; color: #243b2f; }
h1 { font-size: 28px; }
section { border: 1px solid #cfd8d1; border-radius: 8px; padding: 16px; margin: 16px 0; }
input { width: 100%; box-sizing: border-box; padding: 10px; margin: 6px 0; border: 1px solid #cfd8d1; border-radius: 4px; }
button { padding: 10px 20px; border: none; border-radius: 4px; background: #2f6b4f; color: #fff; cursor: pointer; }
#out { white-space: pre-wrap; font-family: monospace; font-size: 13px; color: #555; }
</style>
</head>
<body>
<h1>Trellis</h1>
<section>
  <h2>Sign up</h2>
  <form onsubmit="return submitTo(event, '/api/v1/auth/signup')">
    <input name="username" placeholder="Username" required />
    <input type="email" name="email" placeholder="Email" required />
    <input type="password" name="password" placeholder="Password" required />
    <button type="submit">Sign up</button>
  </form>
</section>
<section>
  <h2>Log in</h2>
  <form onsubmit="return submitTo(event, '/api/v1/auth/login')">
    <input type="email" name="email" placeholder="Email" required />
    <input type="password" name="password" placeholder="Password" required />
    <button type="submit">Log in</button>
  </form>
</section>
<section>
  <h2>Forgot password</h2>
  <form onsubmit="return submitTo(event, '/api/v1/auth/forgot-password')">
    <input type="email" name="email" placeholder="Email" required />
    <button type="submit">Send code</button>
  </form>
</section>
<pre id="out"></pre>
<script>
async function submitTo(event, path) {
  event.preventDefault();
  const form = new FormData(event.target);
  const response = await fetch(path, {
    method: 'POST',
    credentials: 'include',
    headers: { 'Content-Type': 'application/json' },
    body: JSON.stringify(Object.fromEntries(form.entries()))
  });
  const text = await response.text();
  document.getElementById('out').textContent = response.status + ' ' + text;
  return false;
}
</script>
</body>
</html>`

func RegisterPages(e *echo.Echo, homeURL string) {
	e.GET("/", func(c echo.Context) error {
		if homeURL != "" {
			return c.Redirect(http.StatusTemporaryRedirect, homeURL)
		}
		return c.HTML(http.StatusOK, landingPageHTML)
	})
}
