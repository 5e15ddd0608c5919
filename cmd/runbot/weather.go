// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"fmt"

	"go.astrophena.name/runbot/internal/request"
)

// Izhevsk. Open-Meteo needs no API key, which is why it's used here.
const defaultWeatherURL = "https://api.open-meteo.com/v1/forecast?latitude=56.85&longitude=53.21&current=temperature_2m,apparent_temperature,wind_speed_10m,weather_code&wind_speed_unit=ms"

type weatherResponse struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
		FeelsLike   float64 `json:"apparent_temperature"`
		WindSpeed   float64 `json:"wind_speed_10m"`
		WeatherCode int     `json:"weather_code"`
	} `json:"current"`
}

// weather returns a short human-readable weather report for Izhevsk.
func (b *bot) weather(ctx context.Context) (string, error) {
	res, err := request.Make[weatherResponse](ctx, request.Params{
		Method:     "GET",
		URL:        b.weatherURL,
		HTTPClient: b.httpc,
	})
	if err != nil {
		return "", err
	}
	cur := res.Current
	return fmt.Sprintf("Сейчас в Ижевске %s, %+.0f°C (ощущается как %+.0f°C), ветер %.0f м/с.",
		describeWeatherCode(cur.WeatherCode), cur.Temperature, cur.FeelsLike, cur.WindSpeed), nil
}

// describeWeatherCode maps a WMO weather code to a Russian description.
func describeWeatherCode(code int) string {
	switch {
	case code == 0:
		return "ясно"
	case code <= 2:
		return "переменная облачность"
	case code == 3:
		return "пасмурно"
	case code <= 48:
		return "туман"
	case code <= 57:
		return "морось"
	case code <= 67:
		return "дождь"
	case code <= 77:
		return "снег"
	case code <= 82:
		return "ливень"
	case code <= 86:
		return "снегопад"
	case code <= 99:
		return "гроза"
	}
	return "непонятно что"
}
