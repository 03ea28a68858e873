package hook

// Gameplay events raised by world.GameplayController and world.Manager.
const (
	// Data is *PlayerDamage; handlers may change Amount. ErrInterrupt cancels the hit.
	BeforePlayerDamage = "before_player_damage"
	// Data is *EnemyDamage; handlers may change Amount. ErrInterrupt cancels the hit.
	BeforeEnemyDamage = "before_enemy_damage"

	OnEnemyStateChange    = "on_enemy_state_change"
	OnDetectionModeChange = "on_detection_mode_change"
	OnPhaseChange         = "on_phase_change"
	OnEnemyDestroyed      = "on_enemy_destroyed"
	OnEnemySpawned        = "on_enemy_spawned"
	OnMoonlightCollected  = "on_moonlight_collected"
	OnSessionStart        = "on_session_start"
	OnSessionEnd          = "on_session_end"
)

// PlayerDamage is the payload of BeforePlayerDamage.
type PlayerDamage struct {
	EnemyID int
	Amount  int
}

// EnemyDamage is the payload of BeforeEnemyDamage.
type EnemyDamage struct {
	EnemyID int
	Amount  int
}
