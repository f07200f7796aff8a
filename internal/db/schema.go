package db

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []struct {
	table string
	ddl   string
}{
	{"staff", `
CREATE TABLE IF NOT EXISTS staff (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	email VARCHAR(255) NOT NULL,
	password_hash VARCHAR(255) NOT NULL DEFAULT '',
	role VARCHAR(50) NOT NULL DEFAULT 'transport_manager',
	status VARCHAR(20) NOT NULL DEFAULT 'active',
	failed_login_attempts INT NOT NULL DEFAULT 0,
	locked_until DATETIME NULL,
	last_login_at DATETIME NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	UNIQUE KEY uniq_staff_email (email)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"vehicles", `
CREATE TABLE IF NOT EXISTS vehicles (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	registration_number VARCHAR(50) NOT NULL,
	model VARCHAR(100) NOT NULL DEFAULT '',
	capacity INT NOT NULL DEFAULT 0,
	fuel_type VARCHAR(20) NOT NULL DEFAULT 'diesel',
	status VARCHAR(20) NOT NULL DEFAULT 'active',
	insurance_expiry DATE NULL,
	fitness_expiry DATE NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	UNIQUE KEY uniq_vehicle_reg (registration_number)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"drivers", `
CREATE TABLE IF NOT EXISTS drivers (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	email VARCHAR(255) NOT NULL,
	phone VARCHAR(30) NOT NULL DEFAULT '',
	license_number VARCHAR(50) NOT NULL DEFAULT '',
	password_hash VARCHAR(255) NOT NULL DEFAULT '',
	status VARCHAR(20) NOT NULL DEFAULT 'active',
	assigned_route_id BIGINT NULL,
	failed_login_attempts INT NOT NULL DEFAULT 0,
	locked_until DATETIME NULL,
	last_login_at DATETIME NULL,
	location_sharing_enabled TINYINT(1) NOT NULL DEFAULT 1,
	current_latitude DECIMAL(10,8) NULL,
	current_longitude DECIMAL(11,8) NULL,
	location_accuracy DOUBLE NULL,
	location_timestamp DATETIME NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	UNIQUE KEY uniq_driver_email (email)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"routes", `
CREATE TABLE IF NOT EXISTS routes (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	route_number VARCHAR(20) NOT NULL,
	route_name VARCHAR(255) NOT NULL,
	start_location VARCHAR(255) NOT NULL DEFAULT '',
	end_location VARCHAR(255) NOT NULL DEFAULT '',
	departure_time VARCHAR(8) NOT NULL DEFAULT '07:30',
	arrival_time VARCHAR(8) NOT NULL DEFAULT '09:00',
	distance_km DOUBLE NOT NULL DEFAULT 0,
	total_capacity INT NOT NULL DEFAULT 0,
	semester_fee BIGINT NOT NULL DEFAULT 0,
	status VARCHAR(20) NOT NULL DEFAULT 'active',
	driver_id BIGINT NULL,
	vehicle_id BIGINT NULL,
	current_latitude DECIMAL(10,8) NULL,
	current_longitude DECIMAL(11,8) NULL,
	last_gps_update DATETIME NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	UNIQUE KEY uniq_route_number (route_number)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"route_stops", `
CREATE TABLE IF NOT EXISTS route_stops (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	route_id BIGINT NOT NULL,
	stop_name VARCHAR(255) NOT NULL,
	stop_time VARCHAR(8) NOT NULL DEFAULT '',
	sequence_order INT NOT NULL,
	latitude DECIMAL(10,8) NULL,
	longitude DECIMAL(11,8) NULL,
	is_major_stop TINYINT(1) NOT NULL DEFAULT 0,
	UNIQUE KEY uniq_route_sequence (route_id, sequence_order),
	KEY idx_route (route_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"students", `
CREATE TABLE IF NOT EXISTS students (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	email VARCHAR(255) NOT NULL,
	roll_number VARCHAR(50) NOT NULL DEFAULT '',
	phone VARCHAR(30) NOT NULL DEFAULT '',
	address TEXT NULL,
	emergency_contact_name VARCHAR(255) NOT NULL DEFAULT '',
	emergency_contact_phone VARCHAR(30) NOT NULL DEFAULT '',
	password_hash VARCHAR(255) NOT NULL DEFAULT '',
	auth_source VARCHAR(20) NOT NULL DEFAULT 'direct',
	external_id VARCHAR(100) NOT NULL DEFAULT '',
	transport_status VARCHAR(20) NOT NULL DEFAULT 'inactive',
	allocated_route_id BIGINT NULL,
	boarding_stop_id BIGINT NULL,
	failed_login_attempts INT NOT NULL DEFAULT 0,
	locked_until DATETIME NULL,
	last_login_at DATETIME NULL,
	location_sharing_enabled TINYINT(1) NOT NULL DEFAULT 0,
	current_latitude DECIMAL(10,8) NULL,
	current_longitude DECIMAL(11,8) NULL,
	location_timestamp DATETIME NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	UNIQUE KEY uniq_student_email (email),
	KEY idx_student_route (allocated_route_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"transport_enrollments", `
CREATE TABLE IF NOT EXISTS transport_enrollments (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	student_id BIGINT NOT NULL,
	route_id BIGINT NOT NULL,
	stop_id BIGINT NULL,
	preferred_start_date DATE NULL,
	status VARCHAR(20) NOT NULL DEFAULT 'pending',
	rejection_reason TEXT NULL,
	reviewed_by BIGINT NULL,
	reviewed_at DATETIME NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	KEY idx_enrollment_student (student_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"schedules", `
CREATE TABLE IF NOT EXISTS schedules (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	route_id BIGINT NOT NULL,
	schedule_date DATE NOT NULL,
	departure_time VARCHAR(8) NOT NULL,
	arrival_time VARCHAR(8) NOT NULL DEFAULT '',
	total_seats INT NOT NULL,
	booked_seats INT NOT NULL DEFAULT 0,
	status VARCHAR(20) NOT NULL DEFAULT 'scheduled',
	driver_id BIGINT NULL,
	vehicle_id BIGINT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	UNIQUE KEY uniq_route_date_time (route_id, schedule_date, departure_time)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"booking_settings", `
CREATE TABLE IF NOT EXISTS booking_settings (
	id INT PRIMARY KEY,
	enabled TINYINT(1) NOT NULL DEFAULT 1,
	open_days_ahead INT NOT NULL DEFAULT 7,
	cutoff_hours_before INT NOT NULL DEFAULT 12,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"bookings", `
CREATE TABLE IF NOT EXISTS bookings (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	student_id BIGINT NOT NULL,
	schedule_id BIGINT NOT NULL,
	route_id BIGINT NOT NULL,
	trip_date DATE NOT NULL,
	seat_number VARCHAR(10) NOT NULL DEFAULT '',
	boarding_stop VARCHAR(255) NOT NULL DEFAULT '',
	status VARCHAR(20) NOT NULL DEFAULT 'confirmed',
	cancelled_at DATETIME NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	KEY idx_booking_schedule (schedule_id),
	KEY idx_booking_student (student_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"semester_payments", `
CREATE TABLE IF NOT EXISTS semester_payments (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	student_id BIGINT NOT NULL,
	route_id BIGINT NOT NULL,
	academic_year VARCHAR(20) NOT NULL,
	semester VARCHAR(10) NOT NULL,
	amount BIGINT NOT NULL,
	currency VARCHAR(5) NOT NULL DEFAULT 'INR',
	status VARCHAR(20) NOT NULL DEFAULT 'pending',
	gateway_order_id VARCHAR(100) NOT NULL,
	gateway_payment_id VARCHAR(100) NOT NULL DEFAULT '',
	failure_reason VARCHAR(255) NOT NULL DEFAULT '',
	paid_at DATETIME NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	UNIQUE KEY uniq_gateway_order (gateway_order_id),
	KEY idx_payment_student (student_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"payment_receipts", `
CREATE TABLE IF NOT EXISTS payment_receipts (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	payment_id BIGINT NOT NULL,
	receipt_number VARCHAR(50) NOT NULL,
	issued_at DATETIME NOT NULL,
	UNIQUE KEY uniq_receipt_payment (payment_id),
	UNIQUE KEY uniq_receipt_number (receipt_number)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"grievances", `
CREATE TABLE IF NOT EXISTS grievances (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	ticket_number VARCHAR(40) NOT NULL,
	student_id BIGINT NOT NULL,
	route_id BIGINT NULL,
	category VARCHAR(20) NOT NULL,
	priority VARCHAR(10) NOT NULL DEFAULT 'medium',
	subject VARCHAR(200) NOT NULL,
	description TEXT NOT NULL,
	status VARCHAR(20) NOT NULL DEFAULT 'open',
	resolution TEXT NULL,
	resolved_at DATETIME NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	UNIQUE KEY uniq_ticket (ticket_number),
	KEY idx_grievance_student (student_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"grievance_communications", `
CREATE TABLE IF NOT EXISTS grievance_communications (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	grievance_id BIGINT NOT NULL,
	sender_type VARCHAR(20) NOT NULL,
	sender_id BIGINT NOT NULL,
	message TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	KEY idx_comm_grievance (grievance_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"notifications", `
CREATE TABLE IF NOT EXISTS notifications (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	title VARCHAR(255) NOT NULL,
	message TEXT NOT NULL,
	type VARCHAR(20) NOT NULL DEFAULT 'info',
	category VARCHAR(30) NOT NULL DEFAULT 'general',
	target_audience VARCHAR(30) NOT NULL DEFAULT 'all',
	target_route_id BIGINT NULL,
	target_user_id BIGINT NULL,
	is_active TINYINT(1) NOT NULL DEFAULT 1,
	created_by BIGINT NULL,
	expires_at DATETIME NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	KEY idx_notification_audience (target_audience)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"notification_reads", `
CREATE TABLE IF NOT EXISTS notification_reads (
	notification_id BIGINT NOT NULL,
	user_type VARCHAR(20) NOT NULL,
	user_id BIGINT NOT NULL,
	read_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (notification_id, user_type, user_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"push_subscriptions", `
CREATE TABLE IF NOT EXISTS push_subscriptions (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	user_type VARCHAR(20) NOT NULL,
	user_id BIGINT NOT NULL,
	endpoint VARCHAR(700) NOT NULL,
	p256dh VARCHAR(255) NOT NULL,
	auth VARCHAR(255) NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	UNIQUE KEY uniq_push_endpoint (endpoint(255))
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"location_tracking", `
CREATE TABLE IF NOT EXISTS location_tracking (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	subject_type VARCHAR(20) NOT NULL,
	subject_id BIGINT NOT NULL,
	route_id BIGINT NULL,
	latitude DECIMAL(10,8) NOT NULL,
	longitude DECIMAL(11,8) NOT NULL,
	accuracy DOUBLE NULL,
	speed DOUBLE NULL,
	heading DOUBLE NULL,
	recorded_at DATETIME NOT NULL,
	KEY idx_tracking_subject (subject_type, subject_id, recorded_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
}

// EnsureSchema creates any missing table. Existing tables are left untouched.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("db not available")
	}
	for _, t := range schema {
		if HasTable(db, t.table) {
			continue
		}
		if _, err := db.ExecContext(ctx, t.ddl); err != nil {
			return fmt.Errorf("create %s: %w", t.table, err)
		}
	}
	if _, err := db.ExecContext(ctx, `INSERT IGNORE INTO booking_settings (id, enabled, open_days_ahead, cutoff_hours_before) VALUES (1, 1, 7, 12)`); err != nil {
		return fmt.Errorf("seed booking_settings: %w", err)
	}
	return nil
}

// Tables lists the managed table names in creation order.
func Tables() []string {
	out := make([]string, 0, len(schema))
	for _, t := range schema {
		out = append(out, t.table)
	}
	return out
}
