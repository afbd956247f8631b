package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminPageHandler serves the dashboard page. The page embeds no data; its
// script asks the operator for the stats secret and calls /stats with it.
func AdminPageHandler() gin.HandlerFunc {
	page := []byte(adminHTML)
	return func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", page)
	}
}

const adminHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Launcher statistics</title>
  <script src="https://cdn.jsdelivr.net/npm/chart.js"></script>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; padding: 20px; }
    .chart-container { width: 100%; max-width: 900px; margin-bottom: 40px; }
    .cards { display: flex; gap: 16px; margin-bottom: 24px; }
    .card { border: 1px solid #ddd; border-radius: 6px; padding: 12px 20px; min-width: 140px; }
    .card b { display: block; font-size: 24px; }
    #error { color: #b00020; }
  </style>
</head>
<body>
  <h2>Launcher statistics (last 30 days)</h2>

  <form id="auth" style="margin-bottom: 16px;">
    <label for="secret">Stats secret:</label>
    <input id="secret" type="password" autocomplete="current-password">
    <button type="submit">Load</button>
    <span id="error"></span>
  </form>

  <div class="cards">
    <div class="card">Active (30d)<b id="active30">-</b></div>
    <div class="card">Active (14d)<b id="active14">-</b></div>
    <div class="card">Total launches<b id="launches">-</b></div>
  </div>

  <div class="chart-container">
    <canvas id="dailyChart"></canvas>
  </div>

  <script>
    let chart = null;

    function render(stats) {
      document.getElementById('active30').textContent = stats.active_users_30d;
      document.getElementById('active14').textContent = stats.active_users_14d;
      document.getElementById('launches').textContent = stats.total_launches;

      const series = stats.daily_active_users || [];
      if (chart) {
        chart.destroy();
      }
      chart = new Chart(document.getElementById('dailyChart').getContext('2d'), {
        type: 'line',
        data: {
          labels: series.map(d => d.date),
          datasets: [{
            label: 'Daily active users',
            data: series.map(d => d.count),
            borderColor: 'rgba(54, 162, 235, 1)',
            backgroundColor: 'rgba(54, 162, 235, 0.2)',
            tension: 0.2,
          }]
        },
        options: {
          responsive: true,
          scales: { y: { beginAtZero: true, ticks: { precision: 0 } } }
        }
      });
    }

    document.getElementById('auth').addEventListener('submit', async function (e) {
      e.preventDefault();
      const errorEl = document.getElementById('error');
      errorEl.textContent = '';
      const secret = document.getElementById('secret').value;
      const res = await fetch('/stats', { headers: { 'Authorization': 'Bearer ' + secret } });
      if (!res.ok) {
        errorEl.textContent = res.status === 401 ? 'Wrong secret.' : 'Failed to load stats.';
        return;
      }
      render(await res.json());
    });
  </script>
</body>
</html>
`
