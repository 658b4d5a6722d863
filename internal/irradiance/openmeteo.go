// Package irradiance fetches solar irradiance figures from Open-Meteo and
// shapes them into the engine's IrradianceForecast. It is the only writer
// of forecast values; it always produces a complete, conforming shape so
// the engine's status machine, not the caller, decides usability.
package irradiance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/m0rg5/SolSum-1.9/internal/engine"
)

const (
	defaultForecastAPIBase = "https://api.open-meteo.com/v1/forecast"
	defaultArchiveAPIBase  = "https://archive-api.open-meteo.com/v1/archive"

	// mjPerPeakSunHour converts a daily shortwave radiation sum (MJ/m²)
	// to peak-sun-hour equivalents: 1 PSH = 1 kWh/m² = 3.6 MJ/m².
	mjPerPeakSunHour = 3.6
)

// Client fetches irradiance data for a fixed location
type Client struct {
	httpClient  *http.Client
	forecastURL string
	archiveURL  string
	latitude    float64
	longitude   float64
}

// NewClient creates an Open-Meteo irradiance client for a location
func NewClient(lat, lon float64) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		forecastURL: defaultForecastAPIBase,
		archiveURL:  defaultArchiveAPIBase,
		latitude:    lat,
		longitude:   lon,
	}
}

// dailyRadiationResponse represents the daily block of both the forecast
// and archive APIs
type dailyRadiationResponse struct {
	Daily struct {
		Time         []string  `json:"time"`
		RadiationSum []float64 `json:"shortwave_radiation_sum"`
	} `json:"daily"`
}

// FetchNow fetches today's expected peak sun hours. The returned forecast
// is always a complete shape: on failure it carries the error message and
// no value, which the engine reads as nodata rather than zero sun.
func (c *Client) FetchNow(ctx context.Context) (engine.IrradianceForecast, error) {
	forecast := engine.IrradianceForecast{
		Mode:      engine.ForecastNow,
		Fetched:   true,
		FetchedAt: time.Now(),
	}

	params := url.Values{}
	params.Add("latitude", fmt.Sprintf("%.4f", c.latitude))
	params.Add("longitude", fmt.Sprintf("%.4f", c.longitude))
	params.Add("daily", "shortwave_radiation_sum")
	params.Add("forecast_days", "1")
	params.Add("timezone", "auto")

	data, err := c.fetchDaily(ctx, c.forecastURL, params)
	if err != nil {
		forecast.Err = err.Error()
		return forecast, err
	}

	if len(data.Daily.RadiationSum) == 0 {
		err := fmt.Errorf("no radiation data for today")
		forecast.Err = err.Error()
		return forecast, err
	}

	hours := data.Daily.RadiationSum[0] / mjPerPeakSunHour
	forecast.NowHours = &hours
	return forecast, nil
}

// FetchMonthAvg fetches climatological sunny-day and cloudy-day peak sun
// hours for a target month, from the most recent fully archived year.
// Days at or above the monthly mean average into the sunny figure, days
// below it into the cloudy figure.
func (c *Client) FetchMonthAvg(ctx context.Context, month time.Month) (engine.IrradianceForecast, error) {
	forecast := engine.IrradianceForecast{
		Mode:      engine.ForecastMonthAvg,
		Fetched:   true,
		FetchedAt: time.Now(),
	}

	if month < time.January || month > time.December {
		err := fmt.Errorf("invalid target month %d", month)
		forecast.Err = err.Error()
		return forecast, err
	}

	// The archive lags a few days behind realtime, so last year's month is
	// the newest guaranteed-complete sample.
	year := time.Now().Year() - 1
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)

	params := url.Values{}
	params.Add("latitude", fmt.Sprintf("%.4f", c.latitude))
	params.Add("longitude", fmt.Sprintf("%.4f", c.longitude))
	params.Add("daily", "shortwave_radiation_sum")
	params.Add("start_date", start.Format("2006-01-02"))
	params.Add("end_date", end.Format("2006-01-02"))
	params.Add("timezone", "auto")

	data, err := c.fetchDaily(ctx, c.archiveURL, params)
	if err != nil {
		forecast.Err = err.Error()
		return forecast, err
	}

	sunny, cloudy, ok := splitByMean(data.Daily.RadiationSum)
	if !ok {
		err := fmt.Errorf("no radiation data for %s %d", month, year)
		forecast.Err = err.Error()
		return forecast, err
	}

	sunnyHours := sunny / mjPerPeakSunHour
	cloudyHours := cloudy / mjPerPeakSunHour
	forecast.SunnyHours = &sunnyHours
	forecast.CloudyHours = &cloudyHours
	return forecast, nil
}

func (c *Client) fetchDaily(ctx context.Context, base string, params url.Values) (dailyRadiationResponse, error) {
	var data dailyRadiationResponse

	fullURL := fmt.Sprintf("%s?%s", base, params.Encode())
	req, err := http.NewRequestWithContext(ctx, "GET", fullURL, nil)
	if err != nil {
		return data, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return data, fmt.Errorf("fetching irradiance: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return data, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return data, fmt.Errorf("decoding response: %w", err)
	}

	return data, nil
}

// splitByMean averages the values at or above the overall mean and the
// values below it. ok is false when the input is empty.
func splitByMean(values []float64) (above, below float64, ok bool) {
	if len(values) == 0 {
		return 0, 0, false
	}

	var total float64
	for _, v := range values {
		total += v
	}
	mean := total / float64(len(values))

	var aboveSum, belowSum float64
	var aboveN, belowN int
	for _, v := range values {
		if v >= mean {
			aboveSum += v
			aboveN++
		} else {
			belowSum += v
			belowN++
		}
	}

	above = aboveSum / float64(aboveN)
	below = mean
	if belowN > 0 {
		below = belowSum / float64(belowN)
	}
	return above, below, true
}
