/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package model

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/hookguard/hookguard/model"
)

// ListAttemptsRequest captures the dashboard's query parameters before
// they become a storage filter.
type ListAttemptsRequest struct {
	Service string `form:"service"`
	Status  string `form:"status"`
	Event   string `form:"event"`
	From    string `form:"from"`
	To      string `form:"to"`
	Limit   int    `form:"limit"`
	Offset  int    `form:"offset"`
}

func (r *ListAttemptsRequest) ValidateListAttempts() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Status, validation.In(model.StatusSuccess, model.StatusFailed)),
		validation.Field(&r.Limit, validation.Min(0), validation.Max(500)),
		validation.Field(&r.Offset, validation.Min(0)),
		validation.Field(&r.From, validation.By(optionalRFC3339)),
		validation.Field(&r.To, validation.By(optionalRFC3339)),
	)
}

func optionalRFC3339(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := time.Parse(time.RFC3339, s); err != nil {
		return errors.New("please format dates as RFC3339 (e.g., 2024-04-22T15:28:03Z)")
	}
	return nil
}

// ToFilter converts the validated request into a storage filter.
func (r *ListAttemptsRequest) ToFilter() model.AttemptFilter {
	filter := model.AttemptFilter{
		Service: r.Service,
		Status:  r.Status,
		Event:   r.Event,
		Limit:   r.Limit,
		Offset:  r.Offset,
	}
	if r.From != "" {
		filter.From, _ = time.Parse(time.RFC3339, r.From)
	}
	if r.To != "" {
		filter.To, _ = time.Parse(time.RFC3339, r.To)
	}
	return filter
}
