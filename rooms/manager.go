package rooms

import (
	"context"
	"errors"
	"time"

	"snapserver/auth"
	"snapserver/models"
	"snapserver/store"

	"go.uber.org/zap"
)

// Outcome は状態遷移の三値結果です。AlreadyAppliedは競合した再試行が
// 観測する「既に遷移済み」のシグナルで、呼び出し側は無害として扱えます。
type Outcome int

const (
	Applied Outcome = iota
	AlreadyApplied
	Rejected
)

var (
	ErrRoomNotFound  = errors.New("rooms: room not found")
	ErrNotOwner      = errors.New("rooms: player is not the room owner")
	ErrInvalidRounds = errors.New("rooms: rounds must be between 1 and 10")
)

// Manager はルームのライフサイクル（設定・開始・終了・削除）を管理します。
// 遷移の直列化はストアのフィルター付きUPDATEに任せ、プロセス内では
// ロックを持ちません。
type Manager struct {
	store  store.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewManager(st store.Store, logger *zap.Logger) *Manager {
	return &Manager{store: st, logger: logger, now: time.Now}
}

// resolveOwned はコードからルームを引き、actorがオーナーであることを確認します。
// 非メンバーにはルームの存在を明かさないため、メンバーシップ無しも
// ErrRoomNotFoundになります。
func (m *Manager) resolveOwned(ctx context.Context, code string, actorID uint) (*models.Room, error) {
	room, err := m.store.RoomByCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	decision, err := auth.RequireOwner(ctx, m.store, room.ID, actorID)
	if err != nil {
		return nil, err
	}
	switch decision {
	case auth.Allowed:
		return room, nil
	case auth.NotFound:
		return nil, ErrRoomNotFound
	default:
		return nil, ErrNotOwner
	}
}

// Rename はルームの表示名を変更します。ラウンド数と異なり状態の制限はありません。
func (m *Manager) Rename(ctx context.Context, code string, actorID uint, name string) error {
	room, err := m.resolveOwned(ctx, code, actorID)
	if err != nil {
		return err
	}

	rows, err := m.store.UpdateRoomFields(ctx, room.ID, nil, map[string]interface{}{"name": name})
	if err != nil {
		return err
	}
	if rows == 0 {
		// 直前にcloseされた場合
		return ErrRoomNotFound
	}
	m.logger.Info("room renamed", zap.Uint("roomID", room.ID))
	return nil
}

// SetRounds はラウンド数を設定します。開始済みのルームではスケジュールを
// 壊さないよう書き込まず、AlreadyAppliedを返します。startとの二重送信を
// 再試行しても安全にするための扱いです。
func (m *Manager) SetRounds(ctx context.Context, code string, actorID uint, rounds int) (Outcome, error) {
	if rounds < models.MinRounds || rounds > models.MaxRounds {
		return Rejected, ErrInvalidRounds
	}

	room, err := m.resolveOwned(ctx, code, actorID)
	if err != nil {
		return Rejected, err
	}

	rows, err := m.store.UpdateRoomFields(ctx, room.ID,
		map[string]interface{}{"status": models.RoomStatusLobby},
		map[string]interface{}{"rounds": rounds})
	if err != nil {
		return Rejected, err
	}
	if rows == 1 {
		return Applied, nil
	}

	current, err := m.store.RoomByID(ctx, room.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Rejected, ErrRoomNotFound
		}
		return Rejected, err
	}
	if current.Status != models.RoomStatusLobby {
		return AlreadyApplied, nil
	}
	return Rejected, errors.New("rooms: set rounds did not apply")
}

// Start はルームを開始します。lobby→activeの遷移はstatusを条件にした
// UPDATEで直列化され、競合した呼び出しのうち1つだけがAppliedを観測します。
// スケジュールの計算元となったラウンド数もフィルターに含めるため、
// 読み取りと書き込みの間にSetRoundsが割り込んでも、確定する
// endsAt - startsAt は必ず書き込まれたラウンド数と一致します。
func (m *Manager) Start(ctx context.Context, code string, actorID uint) (Outcome, *models.Room, error) {
	room, err := m.resolveOwned(ctx, code, actorID)
	if err != nil {
		return Rejected, nil, err
	}

	for {
		startsAt := m.now().UTC()
		endsAt := room.Schedule(startsAt)

		rows, err := m.store.UpdateRoomFields(ctx, room.ID,
			map[string]interface{}{
				"status": models.RoomStatusLobby,
				"rounds": room.Rounds,
			},
			map[string]interface{}{
				"status":    models.RoomStatusActive,
				"starts_at": startsAt,
				"ends_at":   endsAt,
			})
		if err != nil {
			return Rejected, nil, err
		}

		current, loadErr := m.store.RoomByID(ctx, room.ID)
		if loadErr != nil {
			if errors.Is(loadErr, store.ErrNotFound) {
				return Rejected, nil, ErrRoomNotFound
			}
			return Rejected, nil, loadErr
		}

		if rows == 1 {
			m.logger.Info("room started",
				zap.Uint("roomID", room.ID),
				zap.Int("rounds", current.Rounds),
				zap.Time("endsAt", endsAt),
			)
			return Applied, current, nil
		}
		if current.Status != models.RoomStatusLobby {
			// 競合相手が先に開始済み。タイマーは再設定しない。
			return AlreadyApplied, current, nil
		}
		// ラウンド数が差し替わっていたので、確定済みの値で再試行
		room = current
	}
}

// End はルームを終了し、進行中ならスケジュールを現在時刻で打ち切ります。
// lobby・終了済みからの呼び出しは何もせず成功扱いです。
func (m *Manager) End(ctx context.Context, code string, actorID uint) (Outcome, error) {
	room, err := m.resolveOwned(ctx, code, actorID)
	if err != nil {
		return Rejected, err
	}

	rows, err := m.store.UpdateRoomFields(ctx, room.ID,
		map[string]interface{}{"status": models.RoomStatusActive},
		map[string]interface{}{
			"status":  models.RoomStatusEnded,
			"ends_at": m.now().UTC(),
		})
	if err != nil {
		return Rejected, err
	}
	if rows == 1 {
		m.logger.Info("room ended", zap.Uint("roomID", room.ID))
		return Applied, nil
	}
	return AlreadyApplied, nil
}

// Close はルームと従属する全行を削除します。取り消しはできません。
func (m *Manager) Close(ctx context.Context, code string, actorID uint) error {
	room, err := m.resolveOwned(ctx, code, actorID)
	if err != nil {
		return err
	}
	if err := m.store.DeleteRoomCascade(ctx, room.ID); err != nil {
		return err
	}
	m.logger.Info("room closed", zap.Uint("roomID", room.ID), zap.String("code", room.Code))
	return nil
}

// CurrentRound は開始済みルームの現在ラウンド番号とそのブロック開始時刻を
// 返します。スケジュール外（未開始・終了後）はok=falseです。
func CurrentRound(room *models.Room, now time.Time) (int, time.Time, bool) {
	if room.Status != models.RoomStatusActive || room.StartsAt == nil || room.EndsAt == nil {
		return 0, time.Time{}, false
	}
	if now.Before(*room.StartsAt) || !now.Before(*room.EndsAt) {
		return 0, time.Time{}, false
	}
	round := int(now.Sub(*room.StartsAt)/models.RoundDuration) + 1
	if round > room.Rounds {
		round = room.Rounds
	}
	blockStart := room.StartsAt.Add(time.Duration(round-1) * models.RoundDuration)
	return round, blockStart, true
}
