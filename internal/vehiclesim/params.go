package vehiclesim

// DefaultParams is a small multicopter parameter set.
func DefaultParams() map[string]float64 {
	return map[string]float64{
		"BAT1_N_CELLS":    4,
		"BAT1_V_CHARGED":  4.2,
		"COM_RC_LOSS_T":   0.5,
		"MC_PITCH_P":      6.5,
		"MC_ROLL_P":       6.5,
		"MC_YAW_P":        2.8,
		"MIS_TAKEOFF_ALT": 2.5,
		"MPC_XY_VEL_MAX":  12,
		"NAV_DLL_ACT":     0,
		"RTL_RETURN_ALT":  60,
		"SYS_AUTOSTART":   4001,
		"SYS_HAS_MAG":     1,
	}
}
