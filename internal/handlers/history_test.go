package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"

	"docrag/internal/service"
	"docrag/internal/service/mocks"
	"docrag/internal/storage"
)

func withUserIDParam(req *http.Request, userID string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("user_id", userID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestHistoryHandler_Add(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		mockSetup  func(*mocks.MockHistoryService)
		wantStatus int
	}{
		{
			name:   "stores entry",
			target: "/chathistory/history?user_id=3&message=hi&response=hello",
			mockSetup: func(m *mocks.MockHistoryService) {
				m.EXPECT().
					AddEntry(gomock.Any(), service.AddHistoryRequest{UserID: 3, Message: "hi", Response: "hello"}).
					Return(nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing user id",
			target:     "/chathistory/history?message=hi",
			mockSetup:  func(m *mocks.MockHistoryService) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "validation failure",
			target: "/chathistory/history?user_id=3",
			mockSetup: func(m *mocks.MockHistoryService) {
				m.EXPECT().
					AddEntry(gomock.Any(), gomock.Any()).
					Return(&service.ValidationError{Field: "message", Message: "message cannot be empty"})
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "store failure",
			target: "/chathistory/history?user_id=3&message=hi",
			mockSetup: func(m *mocks.MockHistoryService) {
				m.EXPECT().
					AddEntry(gomock.Any(), gomock.Any()).
					Return(errors.New("disk full"))
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockHistory := mocks.NewMockHistoryService(ctrl)
			tt.mockSetup(mockHistory)
			handler := NewHistoryHandler(mockHistory)

			req := httptest.NewRequest(http.MethodPost, tt.target, nil)
			w := httptest.NewRecorder()
			handler.Add(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("Add() status = %v, want %v", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				var resp StatusResponse
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if resp.Status != "success" {
					t.Errorf("status = %q, want success", resp.Status)
				}
			}
		})
	}
}

func TestHistoryHandler_List(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		userID     string
		mockSetup  func(*mocks.MockHistoryService)
		wantStatus int
		wantLen    int
	}{
		{
			name:   "returns entries newest first",
			userID: "9",
			mockSetup: func(m *mocks.MockHistoryService) {
				m.EXPECT().
					GetHistory(gomock.Any(), int64(9)).
					Return([]storage.HistoryEntry{
						{ID: 2, UserID: 9, Message: "second", Response: "b", Timestamp: ts.Add(time.Minute)},
						{ID: 1, UserID: 9, Message: "first", Response: "a", Timestamp: ts},
					}, nil)
			},
			wantStatus: http.StatusOK,
			wantLen:    2,
		},
		{
			name:   "no entries",
			userID: "10",
			mockSetup: func(m *mocks.MockHistoryService) {
				m.EXPECT().GetHistory(gomock.Any(), int64(10)).Return(nil, nil)
			},
			wantStatus: http.StatusOK,
			wantLen:    0,
		},
		{
			name:       "non-numeric user id",
			userID:     "abc",
			mockSetup:  func(m *mocks.MockHistoryService) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockHistory := mocks.NewMockHistoryService(ctrl)
			tt.mockSetup(mockHistory)
			handler := NewHistoryHandler(mockHistory)

			req := withUserIDParam(httptest.NewRequest(http.MethodGet, "/chathistory/history/"+tt.userID, nil), tt.userID)
			w := httptest.NewRecorder()
			handler.List(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("List() status = %v, want %v", w.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp HistoryResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.History == nil {
				t.Fatal("history should encode as an array, not null")
			}
			if len(resp.History) != tt.wantLen {
				t.Fatalf("len(history) = %d, want %d", len(resp.History), tt.wantLen)
			}
			if tt.wantLen == 2 && resp.History[0].Message != "second" {
				t.Errorf("first entry = %q, want second", resp.History[0].Message)
			}
		})
	}
}
